package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// cursorAttr is the wire form of one key attribute inside a cursor.
type cursorAttr struct {
	S *string `json:"S,omitempty"`
	N *string `json:"N,omitempty"`
}

// encodeCursor turns an exclusive start key into an opaque URL-safe token.
func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	wire := make(map[string]cursorAttr, len(key))
	for name, av := range key {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			s := v.Value
			wire[name] = cursorAttr{S: &s}
		case *types.AttributeValueMemberN:
			n := v.Value
			wire[name] = cursorAttr{N: &n}
		default:
			return "", fmt.Errorf("cursor attribute %q has unsupported type %T", name, av)
		}
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeCursor reverses encodeCursor. Any malformed input is ErrInvalidCursor.
func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var wire map[string]cursorAttr
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if len(wire) == 0 {
		return nil, ErrInvalidCursor
	}
	key := make(map[string]types.AttributeValue, len(wire))
	for name, a := range wire {
		switch {
		case a.S != nil && a.N == nil:
			key[name] = &types.AttributeValueMemberS{Value: *a.S}
		case a.N != nil && a.S == nil:
			key[name] = &types.AttributeValueMemberN{Value: *a.N}
		default:
			return nil, fmt.Errorf("%w: attribute %q", ErrInvalidCursor, name)
		}
	}
	return key, nil
}
