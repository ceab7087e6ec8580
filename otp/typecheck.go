package otp

// checkTypeConsistency requires that elements of the array being spliced
// and the elements being inserted share one consistent shape.
func checkTypeConsistency(existing, insert []any) *OtError {
	if len(insert) == 0 {
		// covers both pure removal and the no-op empty/empty case.
		return nil
	}

	switch insert[0].(type) {
	case float64:
		if allKind[float64](existing) && allKind[float64](insert) {
			return nil
		}
		return newErr(KindType, "not all array elements of type Number")
	case bool:
		if allKind[bool](existing) && allKind[bool](insert) {
			return nil
		}
		return newErr(KindType, "not all array elements of type Bool")
	case string:
		if allKind[string](existing) && allKind[string](insert) {
			return nil
		}
		return newErr(KindType, "not all array elements of type String")
	case map[string]any:
		if !(allObjects(existing) && allObjects(insert)) {
			return newErr(KindType, "not all array elements of type Object")
		}
		if allHaveID(existing) && allHaveID(insert) {
			return nil
		}
		return newErr(KindNoId, "")
	default:
		return newErr(KindType, "arrays have different types")
	}
}

func allKind[T any](vs []any) bool {
	for _, v := range vs {
		if _, ok := v.(T); !ok {
			return false
		}
	}
	return true
}

func allObjects(vs []any) bool {
	return allKind[map[string]any](vs)
}

func allHaveID(vs []any) bool {
	for _, v := range vs {
		obj, ok := v.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := obj["id"].(string); !ok {
			return false
		}
	}
	return true
}
