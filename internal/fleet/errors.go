package fleet

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when a boat does not exist or belongs to
	// another subject. The two cases are deliberately indistinguishable.
	ErrForbidden = errors.New("fleet: boat does not exist or is owned by someone else")

	// ErrNotFound is returned when a load (or, from repositories, any entity)
	// does not exist.
	ErrNotFound = errors.New("fleet: not found")

	// ErrInvalidCursor is returned when a list cursor is not recognized.
	ErrInvalidCursor = errors.New("fleet: cursor not recognized")

	// ErrConflict is returned by repositories when a conditional write lost
	// against the current stored state.
	ErrConflict = errors.New("fleet: conflicting stored state")

	// ErrAlreadyCarried is returned when assigning a load that already has a carrier.
	ErrAlreadyCarried = fmt.Errorf("%w: load already has a carrier", ErrForbidden)

	// ErrNotCarried is returned when unassigning a load that is not on the boat.
	ErrNotCarried = fmt.Errorf("%w: load is not on this boat", ErrNotFound)
)
