package fleet

import "context"

// BoatRepository persists boats. Missing boats are ErrNotFound; writes
// conditioned on an owner that no longer matches are ErrConflict.
type BoatRepository interface {
	Create(ctx context.Context, b Boat) (Boat, error)
	Get(ctx context.Context, id int64) (Boat, error)
	ListByOwner(ctx context.Context, owner, cursor string) (Page[Boat], error)
	Update(ctx context.Context, id int64, owner string, in BoatInput) (Boat, error)
	Delete(ctx context.Context, id int64, owner string) error
}

// LoadRepository persists loads.
type LoadRepository interface {
	Create(ctx context.Context, l Load) (Load, error)
	Get(ctx context.Context, id int64) (Load, error)
	List(ctx context.Context, cursor string) (Page[Load], error)
	ListByCarrier(ctx context.Context, boatID int64) ([]Load, error)
	Update(ctx context.Context, id int64, in LoadInput) (Load, error)

	// Assign sets the carrier only if the load has none (ErrConflict otherwise).
	Assign(ctx context.Context, loadID, boatID int64) error

	// Unassign clears the carrier only if it equals boatID (ErrConflict otherwise).
	Unassign(ctx context.Context, loadID, boatID int64) error

	Delete(ctx context.Context, id int64) error
}

// UserRepository persists users.
type UserRepository interface {
	// Create stores u unless a user with the same id exists. It reports
	// whether a new user was stored.
	Create(ctx context.Context, u User) (bool, error)
	List(ctx context.Context) ([]User, error)
}
