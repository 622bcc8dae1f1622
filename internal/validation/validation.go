// Package validation checks decoded boat and load request bodies.
//
// Checks run in a fixed order and only the first failure is reported:
// unknown properties, then missing required properties (full bodies only),
// then each supplied field in declaration order.
package validation

import (
	"encoding/json"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jacentio/moorage/internal/fleet"
)

// Messages returned to clients.
const (
	MsgUnknownProperty = "One or more properties in the request are not valid"
	MsgMissingProperty = "Request is missing one or more required properties"
)

const maxTextLength = 30

// Error is a client payload error.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func invalid(field string) *Error {
	return &Error{Message: field + " value in request is not valid"}
}

var (
	boatFields = []string{"name", "type", "length"}
	loadFields = []string{"volume", "item", "creation_date"}
)

// Boat validates a boat body. With partial set, absent fields are allowed.
func Boat(body map[string]any, partial bool) (fleet.BoatInput, *Error) {
	var in fleet.BoatInput
	if err := checkShape(body, boatFields, partial); err != nil {
		return in, err
	}

	if v, ok := body["name"]; ok {
		s, ok := text(v)
		if !ok {
			return in, invalid("name")
		}
		in.Name = &s
	}
	if v, ok := body["type"]; ok {
		s, ok := text(v)
		if !ok {
			return in, invalid("type")
		}
		in.Type = &s
	}
	if v, ok := body["length"]; ok {
		n, ok := positiveInt(v)
		if !ok {
			return in, invalid("length")
		}
		in.Length = &n
	}
	return in, nil
}

// Load validates a load body. With partial set, absent fields are allowed.
func Load(body map[string]any, partial bool) (fleet.LoadInput, *Error) {
	var in fleet.LoadInput
	if err := checkShape(body, loadFields, partial); err != nil {
		return in, err
	}

	if v, ok := body["volume"]; ok {
		n, ok := positiveInt(v)
		if !ok {
			return in, invalid("volume")
		}
		in.Volume = &n
	}
	if v, ok := body["item"]; ok {
		s, ok := text(v)
		if !ok {
			return in, invalid("item")
		}
		in.Item = &s
	}
	if v, ok := body["creation_date"]; ok {
		s, ok := creationDate(v)
		if !ok {
			return in, invalid("creation_date")
		}
		in.CreationDate = &s
	}
	return in, nil
}

// checkShape rejects unknown keys and, unless partial, absent or null
// required keys.
func checkShape(body map[string]any, fields []string, partial bool) *Error {
	for k := range body {
		if !contains(fields, k) {
			return &Error{Message: MsgUnknownProperty}
		}
	}
	if partial {
		return nil
	}
	for _, f := range fields {
		if v, ok := body[f]; !ok || v == nil {
			return &Error{Message: MsgMissingProperty}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// text accepts a 1-30 character string without brackets or surrounding
// whitespace.
func text(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if n := utf8.RuneCountInString(s); n == 0 || n > maxTextLength {
		return "", false
	}
	if strings.ContainsAny(s, "<>{}[]") {
		return "", false
	}
	if trim(s) != s {
		return "", false
	}
	return s, true
}

// positiveInt accepts a whole JSON number greater than zero that fits int64.
func positiveInt(v any) (int64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, i > 0
		}
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = n
	case int:
		return int64(n), n > 0
	case int64:
		return n, n > 0
	default:
		return 0, false
	}

	if f <= 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// creationDate accepts a 10 character DD/MM/YYYY shaped string. Each part
// only needs to start like a number; the calendar is not checked.
func creationDate(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if utf8.RuneCountInString(s) != 10 || trim(s) != s {
		return "", false
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return "", false
	}
	for i, size := range []int{2, 2, 4} {
		if utf8.RuneCountInString(parts[i]) != size || !leadingInt(parts[i]) {
			return "", false
		}
	}
	return s, true
}

// leadingInt reports whether s begins, after optional whitespace and sign,
// with a decimal digit (or a hex literal with at least one digit).
func leadingInt(s string) bool {
	s = strings.TrimLeftFunc(s, isSpace)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return len(s) > 2 && isHex(s[2])
	}
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}
