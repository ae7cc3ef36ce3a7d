package andersen

import (
	"errors"
	"fmt"
)

// VarID identifies a program variable or temporary.
type VarID uint32

// LocationID identifies an abstract memory location (an allocation site).
type LocationID uint32

// Field selects a field of an abstract object. NoField denotes a plain
// dereference of the object itself.
type Field uint32

const (
	NoField Field = ^Field(0)
	// MaxField is the largest field index a constraint may mention.
	MaxField Field = 1<<20 - 1
)

func (f Field) String() string {
	if f == NoField {
		return "*"
	}
	return fmt.Sprintf("f%d", f)
}

var (
	ErrFieldOutOfRange   = errors.New("field index out of range")
	ErrUnknownConstraint = errors.New("unknown constraint")
)

// Constraint is one of Alloc, Copy, Load or Store.
type Constraint interface {
	// method used to tag constraint constructors
	constraintTag()
	fmt.Stringer
}

type ctag struct{}

func (ctag) constraintTag() {}

// Alloc states that Var may point to Loc.
type Alloc struct {
	ctag
	Var VarID
	Loc LocationID
}

func (c Alloc) String() string {
	return fmt.Sprintf("v%d ⊇ {l%d}", c.Var, c.Loc)
}

// Copy states that pts(LHS) ⊇ pts(RHS).
type Copy struct {
	ctag
	LHS, RHS VarID
}

func (c Copy) String() string {
	return fmt.Sprintf("v%d ⊇ v%d", c.LHS, c.RHS)
}

// Load is LHS = *RHS, or LHS = RHS.Field when Field is not NoField.
type Load struct {
	ctag
	LHS, RHS VarID
	Field    Field
}

func (c Load) String() string {
	return fmt.Sprintf("v%d ⊇ v%d.%v", c.LHS, c.RHS, c.Field)
}

// Store is *LHS = RHS, or LHS.Field = RHS when Field is not NoField.
type Store struct {
	ctag
	LHS, RHS VarID
	Field    Field
}

func (c Store) String() string {
	return fmt.Sprintf("v%d.%v ⊇ v%d", c.LHS, c.Field, c.RHS)
}

func NewAlloc(v VarID, l LocationID) Alloc { return Alloc{Var: v, Loc: l} }
func NewCopy(lhs, rhs VarID) Copy         { return Copy{LHS: lhs, RHS: rhs} }

// NewLoad is lhs = *rhs.
func NewLoad(lhs, rhs VarID) Load { return Load{LHS: lhs, RHS: rhs, Field: NoField} }

// NewFieldLoad is lhs = rhs.f.
func NewFieldLoad(lhs, rhs VarID, f Field) Load { return Load{LHS: lhs, RHS: rhs, Field: f} }

// NewStore is *lhs = rhs.
func NewStore(lhs, rhs VarID) Store { return Store{LHS: lhs, RHS: rhs, Field: NoField} }

// NewFieldStore is lhs.f = rhs.
func NewFieldStore(lhs VarID, f Field, rhs VarID) Store {
	return Store{LHS: lhs, RHS: rhs, Field: f}
}

func checkField(c Constraint, f Field) error {
	if f != NoField && f > MaxField {
		return fmt.Errorf("%v: %w: %d > %d", c, ErrFieldOutOfRange, f, MaxField)
	}
	return nil
}

// ConstraintStore holds a constraint system grouped by constraint kind.
// Within each kind constraints keep their insertion order.
type ConstraintStore struct {
	allocs []Alloc
	copies []Copy
	loads  []Load
	stores []Store
}

func (cs *ConstraintStore) Add(c Constraint) error {
	switch c := c.(type) {
	case Alloc:
		cs.allocs = append(cs.allocs, c)
	case Copy:
		cs.copies = append(cs.copies, c)
	case Load:
		if err := checkField(c, c.Field); err != nil {
			return err
		}
		cs.loads = append(cs.loads, c)
	case Store:
		if err := checkField(c, c.Field); err != nil {
			return err
		}
		cs.stores = append(cs.stores, c)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownConstraint, c)
	}
	return nil
}

func (cs *ConstraintStore) Len() int {
	return len(cs.allocs) + len(cs.copies) + len(cs.loads) + len(cs.stores)
}

// The slices returned by the accessors below are owned by the store and must
// not be modified.

func (cs *ConstraintStore) Allocs() []Alloc { return cs.allocs }
func (cs *ConstraintStore) Copies() []Copy  { return cs.copies }
func (cs *ConstraintStore) Loads() []Load   { return cs.loads }
func (cs *ConstraintStore) Stores() []Store { return cs.stores }

// ForEach visits every constraint, kind by kind.
func (cs *ConstraintStore) ForEach(f func(Constraint)) {
	for _, c := range cs.allocs {
		f(c)
	}
	for _, c := range cs.copies {
		f(c)
	}
	for _, c := range cs.loads {
		f(c)
	}
	for _, c := range cs.stores {
		f(c)
	}
}
