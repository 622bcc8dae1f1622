// Package store provides a DynamoDB document-store layer keyed by entity kind.
//
// Every entity kind maps to one table whose partition key is the attribute
// "id", holding either a number (store-assigned) or a string (caller-chosen).
// The layer offers keyed get/put/update/delete, conditional writes used as
// compare-and-swap, cursor-paginated queries, count scans and full reverse
// lookups over global secondary indexes.
//
// # Keys
//
// Entities are addressed with a [Key]:
//
//	store.IDKey("boat", 5629499534213120)
//	store.NameKey("user", "auth0|abc")
//
// [Store.Insert] assigns a fresh numeric id and writes the document with an
// "attribute_not_exists(id)" guard, so two creates never share an id.
//
// # Conditions
//
// Writes accept an optional [Condition]. A failed condition surfaces as
// [ErrConditionFailed]:
//
//	cond := store.Equals("owner", "auth0|abc")
//	err := s.Delete(ctx, store.IDKey("boat", id), &cond)
//
// # Pagination
//
// [Store.QueryPage] returns at most Query.Limit items plus an opaque cursor
// when more items exist. Cursors are echoed back verbatim; anything the
// store cannot decode fails with [ErrInvalidCursor].
//
// # Errors
//
//   - [ErrNotFound] - no document under the key
//   - [ErrConditionFailed] - a write condition did not hold
//   - [ErrInvalidCursor] - pagination cursor not recognised
//   - [ErrIDExhausted] - id allocation kept colliding
//   - [ErrInvalidKey] - item has no usable "id" attribute
package store
