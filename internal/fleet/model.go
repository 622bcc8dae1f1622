// Package fleet holds the boat, load and user domain: repositories over the
// document store and the Service enforcing ownership and assignment rules.
package fleet

// PageSize is the number of entities returned per list page.
const PageSize = 5

// Entity kinds, also used as store kinds.
const (
	KindBoat = "boat"
	KindLoad = "load"
	KindUser = "user"
)

// Boat is owned by exactly one token subject.
type Boat struct {
	ID     int64  `dynamodbav:"id"`
	Name   string `dynamodbav:"name"`
	Type   string `dynamodbav:"type"`
	Length int64  `dynamodbav:"length"`
	Owner  string `dynamodbav:"owner"`
}

// Load is unassigned while Carrier is nil. The carrier attribute is omitted
// from the stored item in that case so the carrier index stays sparse.
type Load struct {
	ID           int64  `dynamodbav:"id"`
	Volume       int64  `dynamodbav:"volume"`
	Item         string `dynamodbav:"item"`
	CreationDate string `dynamodbav:"creation_date"`
	Carrier      *int64 `dynamodbav:"carrier,omitempty"`
}

// User is keyed by the token subject.
type User struct {
	ID    string `dynamodbav:"id"`
	Email string `dynamodbav:"email"`
}

// BoatDetail is a boat with the ids of the loads it carries, computed on read.
type BoatDetail struct {
	Boat
	Loads []int64
}

// Page is one page of a list. Cursor is empty on the last page.
type Page[T any] struct {
	Items  []T
	Count  int
	Cursor string
}

// BoatInput carries validated boat fields. Nil fields were not supplied.
type BoatInput struct {
	Name   *string
	Type   *string
	Length *int64
}

// Empty reports whether no field was supplied.
func (in BoatInput) Empty() bool {
	return in.Name == nil && in.Type == nil && in.Length == nil
}

// LoadInput carries validated load fields. Nil fields were not supplied.
type LoadInput struct {
	Volume       *int64
	Item         *string
	CreationDate *string
}

// Empty reports whether no field was supplied.
func (in LoadInput) Empty() bool {
	return in.Volume == nil && in.Item == nil && in.CreationDate == nil
}

// apply copies supplied fields onto b.
func (in BoatInput) apply(b *Boat) {
	if in.Name != nil {
		b.Name = *in.Name
	}
	if in.Type != nil {
		b.Type = *in.Type
	}
	if in.Length != nil {
		b.Length = *in.Length
	}
}

// apply copies supplied fields onto l. Carrier is never touched.
func (in LoadInput) apply(l *Load) {
	if in.Volume != nil {
		l.Volume = *in.Volume
	}
	if in.Item != nil {
		l.Item = *in.Item
	}
	if in.CreationDate != nil {
		l.CreationDate = *in.CreationDate
	}
}

// attrs returns the supplied boat fields keyed by stored attribute name.
func (in BoatInput) attrs() map[string]any {
	set := map[string]any{}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Type != nil {
		set["type"] = *in.Type
	}
	if in.Length != nil {
		set["length"] = *in.Length
	}
	return set
}

// attrs returns the supplied load fields keyed by stored attribute name.
func (in LoadInput) attrs() map[string]any {
	set := map[string]any{}
	if in.Volume != nil {
		set["volume"] = *in.Volume
	}
	if in.Item != nil {
		set["item"] = *in.Item
	}
	if in.CreationDate != nil {
		set["creation_date"] = *in.CreationDate
	}
	return set
}
