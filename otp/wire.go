package otp

import (
	"encoding/json"
	"fmt"
)

// opType is the wire discriminator used by the "type" field of an Operation.
type opType string

const (
	opTypeSet    opType = "set"
	opTypeSplice opType = "splice"
)

// wireOperation is the tagged JSON shape of an Operation, used only for
// decoding (it carries every possible field so one Unmarshal covers both
// variants). A json.RawMessage Value lets us tell apart "value omitted"
// (delete) from "value is JSON null".
type wireOperation struct {
	Type   opType          `json:"type"`
	Path   Path            `json:"path"`
	Value  json.RawMessage `json:"value,omitempty"`
	Index  int             `json:"index"`
	Remove int             `json:"remove"`
	Insert json.RawMessage `json:"insert,omitempty"`
}

// wireSet and wireSplice are the per-variant encoding shapes; marshaling
// emits only the fields relevant to the operation's kind.
type wireSet struct {
	Type  opType          `json:"type"`
	Path  Path            `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

type wireSplice struct {
	Type   opType `json:"type"`
	Path   Path   `json:"path"`
	Index  int    `json:"index"`
	Remove int    `json:"remove"`
	Insert []any  `json:"insert"`
}

// MarshalOperation encodes op in its tagged-union JSON wire format.
func MarshalOperation(op Operation) ([]byte, error) {
	switch o := op.(type) {
	case SetOp:
		w := wireSet{Type: opTypeSet, Path: o.PathVal}
		if o.HasValue {
			raw, err := json.Marshal(o.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal set value: %w", err)
			}
			w.Value = raw
		}
		return json.Marshal(w)
	case SpliceOp:
		return json.Marshal(wireSplice{
			Type:   opTypeSplice,
			Path:   o.PathVal,
			Index:  o.Index,
			Remove: o.Remove,
			Insert: o.Insert,
		})
	default:
		return nil, fmt.Errorf("unknown operation type %T", op)
	}
}

// UnmarshalOperation decodes the tagged-union JSON wire format into an
// Operation. Unknown discriminators are rejected.
func UnmarshalOperation(data []byte) (Operation, error) {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}

	switch w.Type {
	case opTypeSet:
		if len(w.Value) == 0 {
			if w.Path.IsRoot() {
				return nil, fmt.Errorf("invalid set operation: empty path with no value")
			}
			del, err := NewDelete(w.Path)
			if err != nil {
				return nil, err
			}
			return del, nil
		}
		var v any
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return nil, fmt.Errorf("unmarshal set value: %w", err)
		}
		return NewSet(w.Path, v), nil
	case opTypeSplice:
		if len(w.Insert) == 0 {
			return nil, fmt.Errorf("invalid splice operation: missing insert array")
		}
		var insert []any
		if err := json.Unmarshal(w.Insert, &insert); err != nil {
			return nil, fmt.Errorf("insert value must be an array: %w", err)
		}
		return NewSplice(w.Path, w.Index, w.Remove, insert), nil
	default:
		return nil, fmt.Errorf("unknown operation discriminator %q", w.Type)
	}
}

// operationHolder lets Patch embed an Operation while delegating to the
// tagged-union codec above for JSON (de)serialization.
type operationHolder struct {
	Operation
}

func (h operationHolder) MarshalJSON() ([]byte, error) {
	return MarshalOperation(h.Operation)
}

func (h *operationHolder) UnmarshalJSON(data []byte) error {
	op, err := UnmarshalOperation(data)
	if err != nil {
		return err
	}
	h.Operation = op
	return nil
}
