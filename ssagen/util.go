package ssagen

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// PointerLike reports whether values of type t may hold the address of an
// abstract object. Only such values become constraint variables.
func PointerLike(t types.Type) bool {
	switch t := t.(type) {
	case *types.Pointer,
		*types.Map,
		*types.Chan,
		*types.Slice,
		*types.Interface,
		*types.Signature:
		return true
	case *types.Named:
		return PointerLike(t.Underlying())
	default:
		return false
	}
}

// PPValue pretty-prints the given value.
func PPValue(v ssa.Value) string {
	switch v := v.(type) {
	case *ssa.Function, *ssa.Global:
		return v.String()
	}
	return fmt.Sprintf("%v: %s = %v", v.Parent(), v.Name(), v)
}

// componentType returns the type of the i'th component of a tuple-typed
// value.
func componentType(v ssa.Value, i int) types.Type {
	return v.Type().(*types.Tuple).At(i).Type()
}
