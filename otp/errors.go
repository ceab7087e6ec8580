package otp

import "fmt"

// ErrorKind tags the taxonomy of errors the core can return.
type ErrorKind byte

const (
	// KindOperation marks an ill-formed operation, e.g. a root Set with no value.
	KindOperation ErrorKind = iota
	// KindPath marks an empty path where an inner segment was required.
	KindPath
	// KindKey marks a missing object key along a path.
	KindKey
	// KindType marks a value of the wrong shape at a path, or mismatched
	// splice element kinds.
	KindType
	// KindValueIsNotArray marks a splice target or insert that isn't an array.
	KindValueIsNotArray
	// KindIndex marks an out-of-bounds splice index/remove pair.
	KindIndex
	// KindNoId marks a spliced object array with elements missing "id".
	KindNoId
	// KindRebase marks a committed patch that failed to apply, or an
	// inconsistent state in the rebase driver.
	KindRebase
)

func (k ErrorKind) String() string {
	switch k {
	case KindOperation:
		return "Operation"
	case KindPath:
		return "Path"
	case KindKey:
		return "Key"
	case KindType:
		return "Type"
	case KindValueIsNotArray:
		return "ValueIsNotArray"
	case KindIndex:
		return "Index"
	case KindNoId:
		return "NoId"
	case KindRebase:
		return "Rebase"
	default:
		return "Unknown"
	}
}

// OtError is the single error type returned by this package's exported
// functions. Callers switch on Kind() rather than matching strings.
type OtError struct {
	kind ErrorKind
	msg  string
}

// Kind reports the taxonomy of the error.
func (e *OtError) Kind() ErrorKind {
	return e.kind
}

func (e *OtError) Error() string {
	if e.msg == "" {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func newErr(kind ErrorKind, format string, args ...any) *OtError {
	return &OtError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
