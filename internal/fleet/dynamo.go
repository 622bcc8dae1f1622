package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/moorage/store"
)

// Default GSI names.
const (
	DefaultOwnerIndex   = "owner-index"
	DefaultCarrierIndex = "carrier-index"
)

// Tables names the DynamoDB table of each fleet kind.
type Tables struct {
	Boats string
	Loads string
	Users string
}

// StoreConfig returns the store configuration mapping fleet kinds to tables.
func StoreConfig(t Tables, maxIDAttempts int) store.Config {
	cfg := store.DefaultConfig()
	cfg.Tables[KindBoat] = t.Boats
	cfg.Tables[KindLoad] = t.Loads
	cfg.Tables[KindUser] = t.Users
	if maxIDAttempts > 0 {
		cfg.MaxIDAttempts = maxIDAttempts
	}
	return cfg
}

// Registry returns the store relationships of the fleet domain: loads
// reference their carrier boat through the carrier attribute.
func Registry(carrierIndex string) *store.Registry {
	r := store.NewRegistry()
	r.Register(carrierRelationship(carrierIndex))
	return r
}

func carrierRelationship(carrierIndex string) store.Relationship {
	return store.Relationship{
		ParentKind:    KindBoat,
		ChildKind:     KindLoad,
		ChildIndex:    carrierIndex,
		ReferenceAttr: "carrier",
	}
}

// mapStoreErr translates store errors into fleet errors.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConditionFailed):
		return ErrConflict
	case errors.Is(err, store.ErrInvalidCursor):
		return ErrInvalidCursor
	}
	return err
}

// DynamoBoats stores boats in DynamoDB, queried per owner on a GSI.
type DynamoBoats struct {
	store      *store.Store
	ownerIndex string
}

// NewDynamoBoats creates a boat repository.
func NewDynamoBoats(s *store.Store, ownerIndex string) *DynamoBoats {
	if ownerIndex == "" {
		ownerIndex = DefaultOwnerIndex
	}
	return &DynamoBoats{store: s, ownerIndex: ownerIndex}
}

func (r *DynamoBoats) Create(ctx context.Context, b Boat) (Boat, error) {
	id, err := r.store.Insert(ctx, KindBoat, b)
	if err != nil {
		return Boat{}, err
	}
	b.ID = id
	return b, nil
}

func (r *DynamoBoats) Get(ctx context.Context, id int64) (Boat, error) {
	var b Boat
	if err := r.store.Get(ctx, store.IDKey(KindBoat, id), &b); err != nil {
		return Boat{}, mapStoreErr(err)
	}
	return b, nil
}

func (r *DynamoBoats) ListByOwner(ctx context.Context, owner, cursor string) (Page[Boat], error) {
	q := store.Query{
		Kind:      KindBoat,
		IndexName: r.ownerIndex,
		Attr:      "owner",
		Value:     owner,
		Limit:     PageSize,
	}

	count, err := r.store.Count(ctx, q)
	if err != nil {
		return Page[Boat]{}, err
	}
	page, err := r.store.QueryPage(ctx, q, cursor)
	if err != nil {
		return Page[Boat]{}, mapStoreErr(err)
	}

	var boats []Boat
	if err := attributevalue.UnmarshalListOfMaps(page.Items, &boats); err != nil {
		return Page[Boat]{}, fmt.Errorf("unmarshal boats: %w", err)
	}
	return Page[Boat]{Items: boats, Count: count, Cursor: page.Cursor}, nil
}

// Update applies in only while the boat is still owned by owner.
func (r *DynamoBoats) Update(ctx context.Context, id int64, owner string, in BoatInput) (Boat, error) {
	cond := store.Equals("owner", owner)
	var b Boat
	err := r.store.Update(ctx, store.IDKey(KindBoat, id), store.Update{
		Set:       in.attrs(),
		Condition: &cond,
	}, &b)
	if err != nil {
		return Boat{}, mapStoreErr(err)
	}
	return b, nil
}

// Delete removes the boat only while it is still owned by owner.
func (r *DynamoBoats) Delete(ctx context.Context, id int64, owner string) error {
	cond := store.Equals("owner", owner)
	return mapStoreErr(r.store.Delete(ctx, store.IDKey(KindBoat, id), &cond))
}

// DynamoLoads stores loads in DynamoDB; carried loads are found through
// the sparse carrier GSI.
type DynamoLoads struct {
	store   *store.Store
	carrier store.Relationship
}

// NewDynamoLoads creates a load repository.
func NewDynamoLoads(s *store.Store, carrierIndex string) *DynamoLoads {
	if carrierIndex == "" {
		carrierIndex = DefaultCarrierIndex
	}
	return &DynamoLoads{store: s, carrier: carrierRelationship(carrierIndex)}
}

func (r *DynamoLoads) Create(ctx context.Context, l Load) (Load, error) {
	id, err := r.store.Insert(ctx, KindLoad, l)
	if err != nil {
		return Load{}, err
	}
	l.ID = id
	return l, nil
}

func (r *DynamoLoads) Get(ctx context.Context, id int64) (Load, error) {
	var l Load
	if err := r.store.Get(ctx, store.IDKey(KindLoad, id), &l); err != nil {
		return Load{}, mapStoreErr(err)
	}
	return l, nil
}

func (r *DynamoLoads) List(ctx context.Context, cursor string) (Page[Load], error) {
	q := store.Query{Kind: KindLoad, Limit: PageSize}

	count, err := r.store.Count(ctx, q)
	if err != nil {
		return Page[Load]{}, err
	}
	page, err := r.store.QueryPage(ctx, q, cursor)
	if err != nil {
		return Page[Load]{}, mapStoreErr(err)
	}

	var loads []Load
	if err := attributevalue.UnmarshalListOfMaps(page.Items, &loads); err != nil {
		return Page[Load]{}, fmt.Errorf("unmarshal loads: %w", err)
	}
	return Page[Load]{Items: loads, Count: count, Cursor: page.Cursor}, nil
}

func (r *DynamoLoads) ListByCarrier(ctx context.Context, boatID int64) ([]Load, error) {
	items, err := r.store.QueryAll(ctx, r.carrier.ReverseQuery(boatID))
	if err != nil {
		return nil, err
	}
	var loads []Load
	if err := attributevalue.UnmarshalListOfMaps(items, &loads); err != nil {
		return nil, fmt.Errorf("unmarshal loads: %w", err)
	}
	return loads, nil
}

func (r *DynamoLoads) Update(ctx context.Context, id int64, in LoadInput) (Load, error) {
	var l Load
	err := r.store.Update(ctx, store.IDKey(KindLoad, id), store.Update{Set: in.attrs()}, &l)
	if err != nil {
		return Load{}, mapStoreErr(err)
	}
	return l, nil
}

func (r *DynamoLoads) Assign(ctx context.Context, loadID, boatID int64) error {
	cond := store.NotExists("carrier")
	return mapStoreErr(r.store.Update(ctx, store.IDKey(KindLoad, loadID), store.Update{
		Set:       map[string]any{"carrier": boatID},
		Condition: &cond,
	}, nil))
}

func (r *DynamoLoads) Unassign(ctx context.Context, loadID, boatID int64) error {
	cond := store.Equals("carrier", boatID)
	return mapStoreErr(r.store.Update(ctx, store.IDKey(KindLoad, loadID), store.Update{
		Remove:    []string{"carrier"},
		Condition: &cond,
	}, nil))
}

func (r *DynamoLoads) Delete(ctx context.Context, id int64) error {
	cond := store.Exists()
	return mapStoreErr(r.store.Delete(ctx, store.IDKey(KindLoad, id), &cond))
}

// DynamoUsers stores users keyed by token subject.
type DynamoUsers struct {
	store *store.Store
}

// NewDynamoUsers creates a user repository.
func NewDynamoUsers(s *store.Store) *DynamoUsers {
	return &DynamoUsers{store: s}
}

func (r *DynamoUsers) Create(ctx context.Context, u User) (bool, error) {
	cond := store.NotExists("id")
	err := r.store.Put(ctx, store.NameKey(KindUser, u.ID), u, &cond)
	if errors.Is(err, store.ErrConditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DynamoUsers) List(ctx context.Context) ([]User, error) {
	items, err := r.store.QueryAll(ctx, store.Query{Kind: KindUser})
	if err != nil {
		return nil, err
	}
	var users []User
	if err := attributevalue.UnmarshalListOfMaps(items, &users); err != nil {
		return nil, fmt.Errorf("unmarshal users: %w", err)
	}
	return users, nil
}
