package otp

// Transform implements op_ot: given a committed base operation and a
// candidate op that was concurrently generated against the same document,
// produce the operation that should be applied instead of op once base has
// already landed. A nil return means op should be dropped.
//
// content is the document with base already applied, as Rebase passes it;
// the branches where op's path lies inside the array base spliced check
// whether op's path is still reachable in it.
func Transform(content any, base, op Operation) (Operation, *OtError) {
	switch b := base.(type) {
	case SetOp:
		switch o := op.(type) {
		case SetOp:
			return transformSetSet(b, o), nil
		case SpliceOp:
			return transformSetSplice(b, o), nil
		}
	case SpliceOp:
		switch o := op.(type) {
		case SetOp:
			return transformSpliceSet(content, b, o)
		case SpliceOp:
			return transformSpliceSplice(content, b, o)
		}
	}
	return nil, newErr(KindOperation, "unknown operation pair (%T, %T)", base, op)
}

// basePrefixesOp reports whether basePath is a segment-aligned prefix of (or
// equal to) opPath: base touched opPath or something containing it.
func basePrefixesOp(basePath, opPath Path) bool {
	return opPath.startsWith(basePath)
}

// opPrefixesBase reports whether opPath is a segment-aligned prefix of (or
// equal to) basePath: op touches something base already touched.
func opPrefixesBase(basePath, opPath Path) bool {
	return basePath.startsWith(opPath)
}

func transformSetSet(base, op SetOp) Operation {
	switch {
	case base.PathVal == op.PathVal:
		// Same path: base already won, op is redundant.
		return nil
	case opPrefixesBase(base.PathVal, op.PathVal):
		// op set an ancestor (or is root) that base's target now lives under;
		// base's narrower write is subsumed by op, so op still applies as-is.
		return op
	case basePrefixesOp(base.PathVal, op.PathVal):
		// base replaced an ancestor of op's target (or the whole document),
		// so op's target no longer exists in the shape op expects.
		return nil
	default:
		// Disjoint paths, both survive untouched.
		return op
	}
}

func transformSetSplice(base SetOp, op SpliceOp) Operation {
	switch {
	case base.PathVal == op.PathVal:
		// base replaced or deleted exactly the array op wants to splice.
		return nil
	case opPrefixesBase(base.PathVal, op.PathVal):
		return op
	case basePrefixesOp(base.PathVal, op.PathVal):
		return nil
	default:
		return op
	}
}

func transformSpliceSet(content any, base SpliceOp, op SetOp) (Operation, *OtError) {
	switch {
	case base.PathVal == op.PathVal:
		// base spliced the very array op wants to overwrite; op still wins,
		// it replaces the whole array regardless of base's edits to it.
		return op, nil
	case opPrefixesBase(base.PathVal, op.PathVal):
		// op set an ancestor of the spliced array (or root); base's splice is
		// now inside whatever op just wrote, so op alone is sufficient.
		return op, nil
	case basePrefixesOp(base.PathVal, op.PathVal):
		// op targets something inside the array base spliced. Its array
		// index position may have shifted or disappeared entirely.
		if !IsReachable(op.PathVal, content) {
			return nil, nil
		}
		return op, nil
	default:
		return op, nil
	}
}

func transformSpliceSplice(content any, base, op SpliceOp) (Operation, *OtError) {
	switch {
	case base.PathVal == op.PathVal:
		return transformSpliceSpliceSamePath(base, op), nil
	case opPrefixesBase(base.PathVal, op.PathVal):
		// op spliced an array base's target path lives inside of; base's
		// target may have shifted, but op's own splice already landed on
		// the array op owns, so op is unaffected.
		return op, nil
	case basePrefixesOp(base.PathVal, op.PathVal):
		// op's path sits inside the array base just spliced. Its
		// array-of-objects-by-id addressing makes element identity
		// independent of numeric position, but the id itself may have
		// been removed by base's splice.
		if !IsReachable(op.PathVal, content) {
			return nil, nil
		}
		return op, nil
	default:
		return op, nil
	}
}

// transformSpliceSpliceSamePath handles two Splice operations aimed at the
// same array. Overlapping index ranges are dropped rather than reconciled;
// an op range after base's is shifted by base's length delta, and an op
// range strictly before base's is kept unchanged.
func transformSpliceSpliceSamePath(base, op SpliceOp) Operation {
	baseEnd := base.Index + base.Remove
	opEnd := op.Index + op.Remove

	switch {
	case baseEnd <= op.Index:
		// base's range, including anything touching its end, lies entirely
		// before op's: shift op by base's length delta.
		shifted := op
		shifted.Index += len(base.Insert) - base.Remove
		return shifted
	case opEnd < base.Index:
		// op's range lies strictly before base's: unaffected.
		return op
	default:
		// Ranges overlap, or touch at op's end: op's removal set is no
		// longer well defined against the post-base array, so it is dropped.
		return nil
	}
}
