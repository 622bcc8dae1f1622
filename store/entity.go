package store

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// Key addresses one document: an entity kind plus either a numeric ID or a
// string Name.
type Key struct {
	// Kind is the entity kind (e.g. "boat").
	Kind string

	// ID is the numeric identifier. Ignored when Name is set.
	ID int64

	// Name is the string identifier (e.g. a token subject).
	Name string
}

// IDKey returns the key of a numerically identified entity.
func IDKey(kind string, id int64) Key {
	return Key{Kind: kind, ID: id}
}

// NameKey returns the key of an entity identified by a string.
func NameKey(kind, name string) Key {
	return Key{Kind: kind, Name: name}
}

// PK returns the DynamoDB primary key for k.
func (k Key) PK() PK {
	if k.Name != "" {
		return PK{"id": &types.AttributeValueMemberS{Value: k.Name}}
	}
	return PK{"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(k.ID, 10)}}
}

// String returns "kind/id".
func (k Key) String() string {
	if k.Name != "" {
		return k.Kind + "/" + k.Name
	}
	return fmt.Sprintf("%s/%d", k.Kind, k.ID)
}

// KeyOf reads the "id" attribute of a raw item into a Key of the given kind.
func KeyOf(kind string, item map[string]types.AttributeValue) (Key, error) {
	switch v := item["id"].(type) {
	case *types.AttributeValueMemberN:
		id, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return IDKey(kind, id), nil
	case *types.AttributeValueMemberS:
		if v.Value == "" {
			return Key{}, ErrInvalidKey
		}
		return NameKey(kind, v.Value), nil
	default:
		return Key{}, ErrInvalidKey
	}
}

// Update describes a partial modification of one document.
type Update struct {
	// Set assigns attribute values. Values are marshalled with attributevalue.
	Set map[string]any

	// Remove deletes attributes.
	Remove []string

	// Condition must hold for the update to apply. Nil means unconditional.
	Condition *Condition
}

// Query selects documents of one kind. With Index and Attr set it queries
// the index for items whose Attr equals Value; otherwise it scans the table.
type Query struct {
	// Kind is the entity kind to read.
	Kind string

	// IndexName is the optional GSI to query. Its partition key must be Attr.
	IndexName string

	// Attr is the partition key attribute of IndexName.
	Attr string

	// Value is the partition key value to match.
	Value any

	// Limit is the page size for QueryPage (0 = no limit).
	Limit int32
}

// scan reports whether q reads the whole table.
func (q Query) scan() bool {
	return q.Attr == ""
}

// Page is one page of raw items.
type Page struct {
	// Items holds at most Query.Limit raw items.
	Items []map[string]types.AttributeValue

	// Cursor resumes after the last item. Empty when no more items exist.
	Cursor string
}

// More reports whether items exist beyond this page.
func (p *Page) More() bool {
	return p.Cursor != ""
}
