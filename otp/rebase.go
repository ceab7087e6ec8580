package otp

// Rebase folds op through committed, an ordered slice of operations already
// applied to content (in that order), producing the operation that should be
// applied instead of op to the document as it now stands. A nil Operation
// with a nil error means op is obsolete and should be dropped.
//
// content must be the document as it stood before committed[0] was applied.
func Rebase(content any, op Operation, committed []Operation) (Operation, *OtError) {
	current := op
	state := content

	for _, base := range committed {
		if current == nil {
			break
		}

		newState, applyErr := Apply(base, state)
		if applyErr != nil {
			return nil, newErr(KindRebase, "committed operation failed to apply: %s", applyErr)
		}
		state = newState

		next, err := Transform(state, base, current)
		if err != nil {
			return nil, newErr(KindRebase, "transform failed: %s", err)
		}
		current = next
	}

	return current, nil
}
