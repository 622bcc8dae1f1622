package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service enforces ownership, assignment and cascade rules over the
// repositories.
type Service struct {
	boats  BoatRepository
	loads  LoadRepository
	users  UserRepository
	logger *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(boats BoatRepository, loads LoadRepository, users UserRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		boats:  boats,
		loads:  loads,
		users:  users,
		logger: logger,
	}
}

// --- Boats ---

// ownedBoat returns the boat if it exists and belongs to owner.
func (s *Service) ownedBoat(ctx context.Context, owner string, id int64) (Boat, error) {
	b, err := s.boats.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Boat{}, ErrForbidden
	}
	if err != nil {
		return Boat{}, fmt.Errorf("get boat %d: %w", id, err)
	}
	if b.Owner != owner {
		return Boat{}, ErrForbidden
	}
	return b, nil
}

// detail attaches the ids of the loads b carries.
func (s *Service) detail(ctx context.Context, b Boat) (BoatDetail, error) {
	loads, err := s.loads.ListByCarrier(ctx, b.ID)
	if err != nil {
		return BoatDetail{}, fmt.Errorf("loads of boat %d: %w", b.ID, err)
	}
	ids := make([]int64, 0, len(loads))
	for _, l := range loads {
		ids = append(ids, l.ID)
	}
	return BoatDetail{Boat: b, Loads: ids}, nil
}

// CreateBoat stores a new boat owned by owner. in must carry every field.
func (s *Service) CreateBoat(ctx context.Context, owner string, in BoatInput) (BoatDetail, error) {
	b := Boat{Owner: owner}
	in.apply(&b)

	created, err := s.boats.Create(ctx, b)
	if err != nil {
		return BoatDetail{}, fmt.Errorf("create boat: %w", err)
	}
	return BoatDetail{Boat: created, Loads: []int64{}}, nil
}

// GetBoat returns an owned boat with its loads.
func (s *Service) GetBoat(ctx context.Context, owner string, id int64) (BoatDetail, error) {
	b, err := s.ownedBoat(ctx, owner, id)
	if err != nil {
		return BoatDetail{}, err
	}
	return s.detail(ctx, b)
}

// ListBoats returns one page of the boats owned by owner.
func (s *Service) ListBoats(ctx context.Context, owner, cursor string) (Page[BoatDetail], error) {
	page, err := s.boats.ListByOwner(ctx, owner, cursor)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			return Page[BoatDetail]{}, err
		}
		return Page[BoatDetail]{}, fmt.Errorf("list boats: %w", err)
	}

	details := make([]BoatDetail, 0, len(page.Items))
	for _, b := range page.Items {
		d, err := s.detail(ctx, b)
		if err != nil {
			return Page[BoatDetail]{}, err
		}
		details = append(details, d)
	}
	return Page[BoatDetail]{Items: details, Count: page.Count, Cursor: page.Cursor}, nil
}

// ReplaceBoat overwrites name, type and length. Owner and loads are kept.
func (s *Service) ReplaceBoat(ctx context.Context, owner string, id int64, in BoatInput) (BoatDetail, error) {
	return s.updateBoat(ctx, owner, id, in)
}

// PatchBoat overwrites only the supplied fields.
func (s *Service) PatchBoat(ctx context.Context, owner string, id int64, in BoatInput) (BoatDetail, error) {
	if in.Empty() {
		return s.GetBoat(ctx, owner, id)
	}
	return s.updateBoat(ctx, owner, id, in)
}

func (s *Service) updateBoat(ctx context.Context, owner string, id int64, in BoatInput) (BoatDetail, error) {
	if _, err := s.ownedBoat(ctx, owner, id); err != nil {
		return BoatDetail{}, err
	}

	b, err := s.boats.Update(ctx, id, owner, in)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return BoatDetail{}, ErrForbidden
	}
	if err != nil {
		return BoatDetail{}, fmt.Errorf("update boat %d: %w", id, err)
	}
	return s.detail(ctx, b)
}

// DeleteBoat clears the carrier of every load on the boat, then deletes it.
// A failed clear aborts the delete.
func (s *Service) DeleteBoat(ctx context.Context, owner string, id int64) error {
	if _, err := s.ownedBoat(ctx, owner, id); err != nil {
		return err
	}

	carried, err := s.loads.ListByCarrier(ctx, id)
	if err != nil {
		return fmt.Errorf("loads of boat %d: %w", id, err)
	}
	for _, l := range carried {
		err := s.UnassignLoad(ctx, owner, id, l.ID)
		if errors.Is(err, ErrNotFound) {
			// deleted or moved since the lookup
			s.logger.Debug("load already off boat", "boat_id", id, "load_id", l.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("unload %d from boat %d: %w", l.ID, id, err)
		}
	}

	err = s.boats.Delete(ctx, id, owner)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("delete boat %d: %w", id, err)
	}

	s.logger.Info("boat deleted", "boat_id", id, "unloaded", len(carried))
	return nil
}

// AssignLoad puts an unassigned load on an owned boat.
func (s *Service) AssignLoad(ctx context.Context, owner string, boatID, loadID int64) error {
	l, err := s.getLoad(ctx, loadID)
	if err != nil {
		return err
	}
	if _, err := s.ownedBoat(ctx, owner, boatID); err != nil {
		return err
	}
	if l.Carrier != nil {
		return ErrAlreadyCarried
	}

	err = s.loads.Assign(ctx, loadID, boatID)
	switch {
	case errors.Is(err, ErrConflict):
		return ErrAlreadyCarried
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("assign load %d to boat %d: %w", loadID, boatID, err)
	}
	return nil
}

// UnassignLoad takes a load off an owned boat. The load's carrier is
// checked before the boat, so a mismatch is reported as ErrNotCarried even
// when the boat is also foreign.
func (s *Service) UnassignLoad(ctx context.Context, owner string, boatID, loadID int64) error {
	l, err := s.getLoad(ctx, loadID)
	if err != nil {
		return err
	}
	if l.Carrier == nil || *l.Carrier != boatID {
		return ErrNotCarried
	}
	if _, err := s.ownedBoat(ctx, owner, boatID); err != nil {
		return err
	}

	err = s.loads.Unassign(ctx, loadID, boatID)
	switch {
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return ErrNotCarried
	case err != nil:
		return fmt.Errorf("unassign load %d from boat %d: %w", loadID, boatID, err)
	}
	return nil
}

// --- Loads ---

func (s *Service) getLoad(ctx context.Context, id int64) (Load, error) {
	l, err := s.loads.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Load{}, ErrNotFound
	}
	if err != nil {
		return Load{}, fmt.Errorf("get load %d: %w", id, err)
	}
	return l, nil
}

// CreateLoad stores a new unassigned load. in must carry every field.
func (s *Service) CreateLoad(ctx context.Context, in LoadInput) (Load, error) {
	var l Load
	in.apply(&l)

	created, err := s.loads.Create(ctx, l)
	if err != nil {
		return Load{}, fmt.Errorf("create load: %w", err)
	}
	return created, nil
}

// GetLoad returns any load; loads are not owned.
func (s *Service) GetLoad(ctx context.Context, id int64) (Load, error) {
	return s.getLoad(ctx, id)
}

// ListLoads returns one page of all loads.
func (s *Service) ListLoads(ctx context.Context, cursor string) (Page[Load], error) {
	page, err := s.loads.List(ctx, cursor)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			return Page[Load]{}, err
		}
		return Page[Load]{}, fmt.Errorf("list loads: %w", err)
	}
	return page, nil
}

// ReplaceLoad overwrites volume, item and creation date. The carrier is kept.
func (s *Service) ReplaceLoad(ctx context.Context, id int64, in LoadInput) (Load, error) {
	return s.updateLoad(ctx, id, in)
}

// PatchLoad overwrites only the supplied fields.
func (s *Service) PatchLoad(ctx context.Context, id int64, in LoadInput) (Load, error) {
	if in.Empty() {
		return s.getLoad(ctx, id)
	}
	return s.updateLoad(ctx, id, in)
}

func (s *Service) updateLoad(ctx context.Context, id int64, in LoadInput) (Load, error) {
	l, err := s.loads.Update(ctx, id, in)
	if errors.Is(err, ErrNotFound) {
		return Load{}, ErrNotFound
	}
	if err != nil {
		return Load{}, fmt.Errorf("update load %d: %w", id, err)
	}
	return l, nil
}

// DeleteLoad removes a load. Its carrier is not notified; boats compute
// their loads on read.
func (s *Service) DeleteLoad(ctx context.Context, id int64) error {
	err := s.loads.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete load %d: %w", id, err)
	}
	return nil
}

// --- Users ---

// EnsureUser stores the subject on first sight. Existing users are left
// untouched.
func (s *Service) EnsureUser(ctx context.Context, subject, email string) (bool, error) {
	created, err := s.users.Create(ctx, User{ID: subject, Email: email})
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	if created {
		s.logger.Info("user created", "sub", subject)
	}
	return created, nil
}

// ListUsers returns every known user.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
