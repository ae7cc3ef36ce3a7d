package andersen

import (
	"errors"
	"fmt"
)

// This file contains the types that describe abstract objects: the targets
// of pointers in the analysed program, and the heap cells that hold the
// contents of their fields.

// AbstractLocation describes an abstract object. Tag is a free-form label
// supplied by the constraint producer, e.g. the allocation site.
type AbstractLocation struct {
	Tag string
	ID  LocationID
}

func (l AbstractLocation) String() string {
	return fmt.Sprintf("l%d(%s)", l.ID, l.Tag)
}

// Cell identifies the contents of a field of an abstract object. The field
// (offset by one) is packed into the high 32 bits and the base location into
// the low 32 bits, so distinct (base, field) pairs never collide. A plain
// dereference of base is Cell(base).
type Cell uint64

// FieldCell returns the cell holding field f of the object base.
func FieldCell(base LocationID, f Field) Cell {
	if f == NoField {
		return Cell(base)
	}
	return Cell(uint64(f)+1)<<32 | Cell(base)
}

func (c Cell) Base() LocationID {
	return LocationID(c)
}

func (c Cell) Field() Field {
	if hi := uint64(c) >> 32; hi != 0 {
		return Field(hi - 1)
	}
	return NoField
}

func (c Cell) String() string {
	if f := c.Field(); f != NoField {
		return fmt.Sprintf("l%d.%v", c.Base(), f)
	}
	return fmt.Sprintf("*l%d", c.Base())
}

const allocTag = "alloc"

// LocationFactory owns the table of abstract locations. Ids named by
// constraints are reserved as they are seen; Fresh hands out ids that are not
// reserved.
type LocationFactory struct {
	locs map[LocationID]AbstractLocation
	next LocationID
}

func NewLocationFactory() *LocationFactory {
	return &LocationFactory{locs: make(map[LocationID]AbstractLocation)}
}

// Reserve records id with the given tag unless it is already known.
func (lf *LocationFactory) Reserve(id LocationID, tag string) AbstractLocation {
	if l, found := lf.locs[id]; found {
		return l
	}

	l := AbstractLocation{Tag: tag, ID: id}
	lf.locs[id] = l
	if id >= lf.next {
		lf.next = id + 1
	}
	return l
}

var ErrLocationsExhausted = errors.New("every location id is in use")

// Fresh creates a location with an id that has not been handed out or
// reserved before. Ids are searched upwards from the last reserved id,
// wrapping around after the largest id. Fresh panics with
// ErrLocationsExhausted when no id is left.
func (lf *LocationFactory) Fresh(tag string) AbstractLocation {
	if uint64(len(lf.locs)) > uint64(^LocationID(0)) {
		panic(ErrLocationsExhausted)
	}

	for {
		if _, taken := lf.locs[lf.next]; !taken {
			break
		}
		lf.next++
	}
	return lf.Reserve(lf.next, tag)
}

func (lf *LocationFactory) Lookup(id LocationID) (AbstractLocation, bool) {
	l, found := lf.locs[id]
	return l, found
}

func (lf *LocationFactory) Len() int {
	return len(lf.locs)
}
