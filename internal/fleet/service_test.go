package fleet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func boatInput(name string) BoatInput {
	return BoatInput{Name: ptr(name), Type: ptr("Sailboat"), Length: ptr(int64(12))}
}

func loadInput(item string) LoadInput {
	return LoadInput{Volume: ptr(int64(5)), Item: ptr(item), CreationDate: ptr("01/02/2024")}
}

type fixture struct {
	svc   *Service
	boats *MemoryBoats
	loads *MemoryLoads
	users *MemoryUsers
}

func newFixture() *fixture {
	f := &fixture{
		boats: NewMemoryBoats(),
		loads: NewMemoryLoads(),
		users: NewMemoryUsers(),
	}
	f.svc = NewService(f.boats, f.loads, f.users, nil)
	return f
}

func (f *fixture) boat(t *testing.T, owner string) BoatDetail {
	t.Helper()
	b, err := f.svc.CreateBoat(context.Background(), owner, boatInput("Orca"))
	require.NoError(t, err)
	return b
}

func (f *fixture) load(t *testing.T) Load {
	t.Helper()
	l, err := f.svc.CreateLoad(context.Background(), loadInput("crate"))
	require.NoError(t, err)
	return l
}

// --- Boats ---

func TestCreateBoat(t *testing.T) {
	f := newFixture()

	a := f.boat(t, "abc")
	b := f.boat(t, "abc")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "abc", a.Owner)
	assert.Equal(t, "Orca", a.Name)
	assert.Equal(t, int64(12), a.Length)
	assert.NotNil(t, a.Loads)
	assert.Empty(t, a.Loads)
}

func TestGetBoat_OwnershipMergedWithAbsence(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")

	_, err := f.svc.GetBoat(ctx, "xyz", b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetBoat(ctx, "abc", b.ID+1000)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.GetBoat(ctx, "abc", b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestReplaceBoat_KeepsOwnerAndLoads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l := f.load(t)
	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID))

	got, err := f.svc.ReplaceBoat(ctx, "abc", b.ID, BoatInput{Name: ptr("Narwhal"), Type: ptr("Ketch"), Length: ptr(int64(40))})
	require.NoError(t, err)

	assert.Equal(t, "Narwhal", got.Name)
	assert.Equal(t, "Ketch", got.Type)
	assert.Equal(t, int64(40), got.Length)
	assert.Equal(t, "abc", got.Owner)
	assert.Equal(t, []int64{l.ID}, got.Loads)

	_, err = f.svc.ReplaceBoat(ctx, "xyz", b.ID, boatInput("Pirate"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPatchBoat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")

	got, err := f.svc.PatchBoat(ctx, "abc", b.ID, BoatInput{Length: ptr(int64(99))})
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Length)
	assert.Equal(t, "Orca", got.Name)

	// empty patch returns the current boat
	same, err := f.svc.PatchBoat(ctx, "abc", b.ID, BoatInput{})
	require.NoError(t, err)
	assert.Equal(t, got.Boat, same.Boat)

	_, err = f.svc.PatchBoat(ctx, "xyz", b.ID, BoatInput{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListBoats_Pagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.boat(t, "abc")
	}
	f.boat(t, "xyz")

	first, err := f.svc.ListBoats(ctx, "abc", "")
	require.NoError(t, err)
	assert.Len(t, first.Items, PageSize)
	assert.Equal(t, 7, first.Count)
	require.NotEmpty(t, first.Cursor)

	second, err := f.svc.ListBoats(ctx, "abc", first.Cursor)
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Equal(t, 7, second.Count)
	assert.Empty(t, second.Cursor)

	seen := map[int64]bool{}
	for _, b := range append(first.Items, second.Items...) {
		assert.Equal(t, "abc", b.Owner)
		assert.False(t, seen[b.ID], "boat %d listed twice", b.ID)
		seen[b.ID] = true
	}
}

func TestListBoats_ExactPageHasNoCursor(t *testing.T) {
	f := newFixture()
	for i := 0; i < PageSize; i++ {
		f.boat(t, "abc")
	}

	page, err := f.svc.ListBoats(context.Background(), "abc", "")
	require.NoError(t, err)
	assert.Len(t, page.Items, PageSize)
	assert.Empty(t, page.Cursor)
}

func TestListBoats_InvalidCursor(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListBoats(context.Background(), "abc", "garbage")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

// --- Assignment ---

func TestAssignLoad(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l := f.load(t)

	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID))

	got, err := f.svc.GetLoad(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Carrier)
	assert.Equal(t, b.ID, *got.Carrier)

	detail, err := f.svc.GetBoat(ctx, "abc", b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{l.ID}, detail.Loads)
}

func TestAssignLoad_AlreadyCarried(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	c := f.boat(t, "abc")
	l := f.load(t)

	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID))

	err := f.svc.AssignLoad(ctx, "abc", c.ID, l.ID)
	assert.ErrorIs(t, err, ErrAlreadyCarried)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.GetLoad(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, *got.Carrier)
}

func TestAssignLoad_Failures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l := f.load(t)

	assert.ErrorIs(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID+1000), ErrNotFound)
	assert.ErrorIs(t, f.svc.AssignLoad(ctx, "xyz", b.ID, l.ID), ErrForbidden)
	assert.ErrorIs(t, f.svc.AssignLoad(ctx, "abc", b.ID+1000, l.ID), ErrForbidden)

	got, err := f.svc.GetLoad(ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Carrier)
}

func TestUnassignLoad(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l := f.load(t)
	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID))

	require.NoError(t, f.svc.UnassignLoad(ctx, "abc", b.ID, l.ID))

	got, err := f.svc.GetLoad(ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Carrier)

	// second unassign: no longer on the boat
	assert.ErrorIs(t, f.svc.UnassignLoad(ctx, "abc", b.ID, l.ID), ErrNotCarried)
}

func TestUnassignLoad_CarrierCheckedBeforeBoat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	c := f.boat(t, "xyz")
	l := f.load(t)
	require.NoError(t, f.svc.AssignLoad(ctx, "xyz", c.ID, l.ID))

	// boat b is foreign to xyz and l is not on b; the carrier mismatch wins
	err := f.svc.UnassignLoad(ctx, "xyz", b.ID, l.ID)
	assert.ErrorIs(t, err, ErrNotCarried)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrForbidden))

	// carrier matches but caller does not own the boat
	assert.ErrorIs(t, f.svc.UnassignLoad(ctx, "abc", c.ID, l.ID), ErrForbidden)

	assert.ErrorIs(t, f.svc.UnassignLoad(ctx, "xyz", c.ID, l.ID+1000), ErrNotFound)
}

// --- Cascade ---

func TestDeleteBoat_ClearsCarriedLoads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l1 := f.load(t)
	l2 := f.load(t)
	other := f.load(t)
	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l1.ID))
	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l2.ID))

	require.NoError(t, f.svc.DeleteBoat(ctx, "abc", b.ID))

	for _, id := range []int64{l1.ID, l2.ID, other.ID} {
		got, err := f.svc.GetLoad(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.Carrier, "load %d still carried", id)
	}

	_, err := f.svc.GetBoat(ctx, "abc", b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteBoat_Foreign(t *testing.T) {
	f := newFixture()
	b := f.boat(t, "abc")

	assert.ErrorIs(t, f.svc.DeleteBoat(context.Background(), "xyz", b.ID), ErrForbidden)

	_, err := f.svc.GetBoat(context.Background(), "abc", b.ID)
	assert.NoError(t, err)
}

type failingUnassign struct {
	*MemoryLoads
}

func (r failingUnassign) Unassign(context.Context, int64, int64) error {
	return errors.New("store unavailable")
}

func TestDeleteBoat_FailedClearAborts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l := f.load(t)
	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID))

	svc := NewService(f.boats, failingUnassign{f.loads}, f.users, nil)
	err := svc.DeleteBoat(ctx, "abc", b.ID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrForbidden))

	_, err = f.svc.GetBoat(ctx, "abc", b.ID)
	assert.NoError(t, err, "boat must survive a failed cascade")
}

type staleCarrierIndex struct {
	*MemoryLoads
	stale []Load
}

func (r staleCarrierIndex) ListByCarrier(context.Context, int64) ([]Load, error) {
	return r.stale, nil
}

func TestDeleteBoat_SkipsVanishedLoads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")

	// index still lists a load that has since been deleted
	loads := staleCarrierIndex{MemoryLoads: f.loads, stale: []Load{{ID: 404, Carrier: ptr(b.ID)}}}
	svc := NewService(f.boats, loads, f.users, nil)

	require.NoError(t, svc.DeleteBoat(ctx, "abc", b.ID))
	_, err := f.svc.GetBoat(ctx, "abc", b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

// --- Loads ---

func TestCreateLoad_Unassigned(t *testing.T) {
	f := newFixture()
	l := f.load(t)

	assert.Nil(t, l.Carrier)
	assert.Equal(t, "crate", l.Item)
	assert.Equal(t, "01/02/2024", l.CreationDate)
	assert.NotEqual(t, l.ID, f.load(t).ID)
}

func TestReplaceLoad_PreservesCarrier(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l := f.load(t)
	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID))

	got, err := f.svc.ReplaceLoad(ctx, l.ID, LoadInput{Volume: ptr(int64(9)), Item: ptr("barrel"), CreationDate: ptr("31/12/2023")})
	require.NoError(t, err)

	assert.Equal(t, int64(9), got.Volume)
	assert.Equal(t, "barrel", got.Item)
	require.NotNil(t, got.Carrier)
	assert.Equal(t, b.ID, *got.Carrier)
}

func TestPatchLoad(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	l := f.load(t)

	got, err := f.svc.PatchLoad(ctx, l.ID, LoadInput{Item: ptr("anchor")})
	require.NoError(t, err)
	assert.Equal(t, "anchor", got.Item)
	assert.Equal(t, int64(5), got.Volume)

	_, err = f.svc.PatchLoad(ctx, l.ID+1000, LoadInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.PatchLoad(ctx, l.ID+1000, LoadInput{Item: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLoad(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.boat(t, "abc")
	l := f.load(t)
	require.NoError(t, f.svc.AssignLoad(ctx, "abc", b.ID, l.ID))

	require.NoError(t, f.svc.DeleteLoad(ctx, l.ID))
	assert.ErrorIs(t, f.svc.DeleteLoad(ctx, l.ID), ErrNotFound)

	_, err := f.svc.GetLoad(ctx, l.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the boat no longer lists it
	detail, err := f.svc.GetBoat(ctx, "abc", b.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Loads)
}

func TestListLoads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		f.load(t)
	}

	first, err := f.svc.ListLoads(ctx, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, PageSize)
	assert.Equal(t, 6, first.Count)

	second, err := f.svc.ListLoads(ctx, first.Cursor)
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Empty(t, second.Cursor)

	_, err = f.svc.ListLoads(ctx, "x1")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

// --- Users ---

func TestEnsureUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.EnsureUser(ctx, "auth0|1", "a@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureUser(ctx, "auth0|1", "changed@example.com")
	require.NoError(t, err)
	assert.False(t, created)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@example.com", users[0].Email)
}
