package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition is a DynamoDB condition expression with its placeholders.
// Values are plain Go values, marshalled when the write is issued.
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]any
}

// Exists holds when the document is present.
func Exists() Condition {
	return Condition{
		Expression: "attribute_exists(#c_id)",
		Names:      map[string]string{"#c_id": "id"},
	}
}

// NotExists holds when attr is absent from the document.
func NotExists(attr string) Condition {
	return Condition{
		Expression: fmt.Sprintf("attribute_not_exists(#c_%s)", attr),
		Names:      map[string]string{"#c_" + attr: attr},
	}
}

// Equals holds when attr is present and equal to value.
func Equals(attr string, value any) Condition {
	return Condition{
		Expression: fmt.Sprintf("#c_%s = :c_%s", attr, attr),
		Names:      map[string]string{"#c_" + attr: attr},
		Values:     map[string]any{":c_" + attr: value},
	}
}

// And joins two conditions; both must hold.
func (c Condition) And(o Condition) Condition {
	return Condition{
		Expression: fmt.Sprintf("(%s) AND (%s)", c.Expression, o.Expression),
		Names:      mergeExprNames(c.Names, o.Names),
		Values:     mergeValues(c.Values, o.Values),
	}
}

// compile marshals the condition's values.
func (c *Condition) compile() (map[string]types.AttributeValue, error) {
	if len(c.Values) == 0 {
		return nil, nil
	}
	values, err := attributevalue.MarshalMap(c.Values)
	if err != nil {
		return nil, fmt.Errorf("marshal condition values: %w", err)
	}
	return values, nil
}

// mergeExprNames merges multiple expression attribute name maps.
func mergeExprNames(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// mergeExprValues merges multiple expression attribute value maps.
func mergeExprValues(maps ...map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

func mergeValues(maps ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}
