package fleet

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// memoryIDs hands out sequential ids shared by the in-memory repositories.
type memoryIDs struct {
	mu   sync.Mutex
	next int64
}

func (g *memoryIDs) id() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

// pageOf cuts one page from ids sorted ascending, resuming after cursor.
// The cursor is the decimal id of the last item of the previous page.
func pageOf(ids []int64, cursor string) ([]int64, string, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	start := 0
	if cursor != "" {
		after, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
		start = sort.Search(len(ids), func(i int) bool { return ids[i] > after })
	}

	end := start + PageSize
	if end >= len(ids) {
		return ids[start:], "", nil
	}
	return ids[start:end], strconv.FormatInt(ids[end-1], 10), nil
}

// MemoryBoats is an in-process BoatRepository for tests and local runs.
type MemoryBoats struct {
	mu    sync.RWMutex
	ids   memoryIDs
	boats map[int64]Boat
}

// NewMemoryBoats creates an empty in-memory boat repository.
func NewMemoryBoats() *MemoryBoats {
	return &MemoryBoats{boats: make(map[int64]Boat)}
}

func (r *MemoryBoats) Create(_ context.Context, b Boat) (Boat, error) {
	b.ID = r.ids.id()
	r.mu.Lock()
	r.boats[b.ID] = b
	r.mu.Unlock()
	return b, nil
}

func (r *MemoryBoats) Get(_ context.Context, id int64) (Boat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boats[id]
	if !ok {
		return Boat{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryBoats) ListByOwner(_ context.Context, owner, cursor string) (Page[Boat], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for id, b := range r.boats {
		if b.Owner == owner {
			ids = append(ids, id)
		}
	}
	count := len(ids)
	ids, next, err := pageOf(ids, cursor)
	if err != nil {
		return Page[Boat]{}, err
	}

	boats := make([]Boat, 0, len(ids))
	for _, id := range ids {
		boats = append(boats, r.boats[id])
	}
	return Page[Boat]{Items: boats, Count: count, Cursor: next}, nil
}

func (r *MemoryBoats) Update(_ context.Context, id int64, owner string, in BoatInput) (Boat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boats[id]
	if !ok {
		return Boat{}, ErrNotFound
	}
	if b.Owner != owner {
		return Boat{}, ErrConflict
	}
	in.apply(&b)
	r.boats[id] = b
	return b, nil
}

func (r *MemoryBoats) Delete(_ context.Context, id int64, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boats[id]
	if !ok {
		return ErrNotFound
	}
	if b.Owner != owner {
		return ErrConflict
	}
	delete(r.boats, id)
	return nil
}

// MemoryLoads is an in-process LoadRepository for tests and local runs.
type MemoryLoads struct {
	mu    sync.RWMutex
	ids   memoryIDs
	loads map[int64]Load
}

// NewMemoryLoads creates an empty in-memory load repository.
func NewMemoryLoads() *MemoryLoads {
	return &MemoryLoads{loads: make(map[int64]Load)}
}

func (r *MemoryLoads) Create(_ context.Context, l Load) (Load, error) {
	l.ID = r.ids.id()
	l.Carrier = nil
	r.mu.Lock()
	r.loads[l.ID] = l
	r.mu.Unlock()
	return l, nil
}

func (r *MemoryLoads) Get(_ context.Context, id int64) (Load, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loads[id]
	if !ok {
		return Load{}, ErrNotFound
	}
	return copyLoad(l), nil
}

func (r *MemoryLoads) List(_ context.Context, cursor string) (Page[Load], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.loads))
	for id := range r.loads {
		ids = append(ids, id)
	}
	count := len(ids)
	ids, next, err := pageOf(ids, cursor)
	if err != nil {
		return Page[Load]{}, err
	}

	loads := make([]Load, 0, len(ids))
	for _, id := range ids {
		loads = append(loads, copyLoad(r.loads[id]))
	}
	return Page[Load]{Items: loads, Count: count, Cursor: next}, nil
}

func (r *MemoryLoads) ListByCarrier(_ context.Context, boatID int64) ([]Load, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var loads []Load
	for _, l := range r.loads {
		if l.Carrier != nil && *l.Carrier == boatID {
			loads = append(loads, copyLoad(l))
		}
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].ID < loads[j].ID })
	return loads, nil
}

func (r *MemoryLoads) Update(_ context.Context, id int64, in LoadInput) (Load, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loads[id]
	if !ok {
		return Load{}, ErrNotFound
	}
	in.apply(&l)
	r.loads[id] = l
	return copyLoad(l), nil
}

func (r *MemoryLoads) Assign(_ context.Context, loadID, boatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loads[loadID]
	if !ok {
		return ErrNotFound
	}
	if l.Carrier != nil {
		return ErrConflict
	}
	l.Carrier = &boatID
	r.loads[loadID] = l
	return nil
}

func (r *MemoryLoads) Unassign(_ context.Context, loadID, boatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loads[loadID]
	if !ok {
		return ErrNotFound
	}
	if l.Carrier == nil || *l.Carrier != boatID {
		return ErrConflict
	}
	l.Carrier = nil
	r.loads[loadID] = l
	return nil
}

func (r *MemoryLoads) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loads[id]; !ok {
		return ErrNotFound
	}
	delete(r.loads, id)
	return nil
}

func copyLoad(l Load) Load {
	if l.Carrier != nil {
		c := *l.Carrier
		l.Carrier = &c
	}
	return l
}

// MemoryUsers is an in-process UserRepository for tests and local runs.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryUsers creates an empty in-memory user repository.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]User)}
}

func (r *MemoryUsers) Create(_ context.Context, u User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return false, nil
	}
	r.users[u.ID] = u
	return true, nil
}

func (r *MemoryUsers) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
