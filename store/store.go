package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/jacentio/moorage/internal/keyspace"
)

// API is the subset of the DynamoDB client the Store uses.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store provides keyed document operations over DynamoDB tables.
type Store struct {
	client API
	config Config
	seed   func() string
}

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
		seed:   uuid.NewString,
	}
}

// Table returns the table name backing a kind.
func (s *Store) Table(kind string) string {
	return s.config.table(kind)
}

// KindForTable returns the kind stored in table, or "" if none is configured.
func (s *Store) KindForTable(table string) string {
	return s.config.kind(table)
}

// Get reads the document under key into out (a pointer to a struct or map).
func (s *Store) Get(ctx context.Context, key Key, out any) error {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.table(key.Kind)),
		Key:            key.PK(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if result.Item == nil {
		return ErrNotFound
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Insert writes doc under a freshly allocated numeric id and returns the id.
// The "id" attribute of doc is overwritten.
func (s *Store) Insert(ctx context.Context, kind string, doc any) (int64, error) {
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", kind, err)
	}

	for attempt := 0; attempt < s.config.MaxIDAttempts; attempt++ {
		id := keyspace.ScatteredID(s.seed())
		item["id"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)}

		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.config.table(kind)),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		})
		if err == nil {
			return id, nil
		}
		if isConditionFailed(err) {
			// id taken, draw another
			continue
		}
		return 0, fmt.Errorf("insert %s: %w", kind, err)
	}
	return 0, ErrIDExhausted
}

// Put writes doc under key, replacing any existing document.
// With a non-nil cond the write only happens when cond holds.
func (s *Store) Put(ctx context.Context, key Key, doc any, cond *Condition) error {
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	for k, v := range key.PK() {
		item[k] = v
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.config.table(key.Kind)),
		Item:      item,
	}
	if cond != nil {
		values, err := cond.compile()
		if err != nil {
			return err
		}
		input.ConditionExpression = aws.String(cond.Expression)
		input.ExpressionAttributeNames = cond.Names
		input.ExpressionAttributeValues = values
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Update modifies attributes of an existing document and, when out is
// non-nil, reads the updated document into it.
// Returns ErrNotFound if the document is missing and ErrConditionFailed if
// upd.Condition does not hold.
func (s *Store) Update(ctx context.Context, key Key, upd Update, out any) error {
	if len(upd.Set) == 0 && len(upd.Remove) == 0 {
		return s.Get(ctx, key, out)
	}

	exprNames := map[string]string{}
	exprValues := map[string]any{}

	// Sorted for stable expressions
	setKeys := make([]string, 0, len(upd.Set))
	for k := range upd.Set {
		setKeys = append(setKeys, k)
	}
	sort.Strings(setKeys)

	var setClauses []string
	for i, k := range setKeys {
		nameKey := fmt.Sprintf("#s%d", i)
		valueKey := fmt.Sprintf(":s%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = upd.Set[k]
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	var removeClauses []string
	for i, k := range upd.Remove {
		nameKey := fmt.Sprintf("#r%d", i)
		exprNames[nameKey] = k
		removeClauses = append(removeClauses, nameKey)
	}

	var updateExpr string
	if len(setClauses) > 0 {
		updateExpr = "SET " + joinStrings(setClauses, ", ")
	}
	if len(removeClauses) > 0 {
		if updateExpr != "" {
			updateExpr += " "
		}
		updateExpr += "REMOVE " + joinStrings(removeClauses, ", ")
	}

	// UpdateItem upserts; never resurrect a deleted document.
	cond := Exists()
	if upd.Condition != nil {
		cond = cond.And(*upd.Condition)
	}
	condValues, err := cond.compile()
	if err != nil {
		return err
	}
	values, err := attributevalue.MarshalMap(exprValues)
	if err != nil {
		return fmt.Errorf("marshal update values: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.config.table(key.Kind)),
		Key:                                 key.PK(),
		UpdateExpression:                    aws.String(updateExpr),
		ConditionExpression:                 aws.String(cond.Expression),
		ExpressionAttributeNames:            mergeExprNames(exprNames, cond.Names),
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}
	if merged := mergeExprValues(values, condValues); len(merged) > 0 {
		input.ExpressionAttributeValues = merged
	}

	result, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return mapConditionError(err, key, "update")
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(result.Attributes, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Delete removes the document under key. Without a condition, deleting a
// missing document is not an error. With a condition, a missing document
// returns ErrNotFound and a failed condition ErrConditionFailed.
func (s *Store) Delete(ctx context.Context, key Key, cond *Condition) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.table(key.Kind)),
		Key:       key.PK(),
	}
	if cond != nil {
		values, err := cond.compile()
		if err != nil {
			return err
		}
		input.ConditionExpression = aws.String(cond.Expression)
		input.ExpressionAttributeNames = cond.Names
		input.ExpressionAttributeValues = values
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	if _, err := s.client.DeleteItem(ctx, input); err != nil {
		return mapConditionError(err, key, "delete")
	}
	return nil
}

// QueryPage returns up to q.Limit items starting after cursor ("" = start).
// The page carries a cursor only when more items exist.
func (s *Store) QueryPage(ctx context.Context, q Query, cursor string) (*Page, error) {
	var start map[string]types.AttributeValue
	if cursor != "" {
		var err error
		if start, err = decodeCursor(cursor); err != nil {
			return nil, err
		}
	}

	// One extra item tells whether another page exists.
	var fetch *int32
	if q.Limit > 0 {
		fetch = aws.Int32(q.Limit + 1)
	}

	var items []map[string]types.AttributeValue
	var last map[string]types.AttributeValue
	if q.scan() {
		input := s.scanInput(q)
		input.Limit = fetch
		input.ExclusiveStartKey = start
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, mapCursorError(err, cursor)
		}
		items, last = out.Items, out.LastEvaluatedKey
	} else {
		input, err := s.queryInput(q)
		if err != nil {
			return nil, err
		}
		input.Limit = fetch
		input.ExclusiveStartKey = start
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, mapCursorError(err, cursor)
		}
		items, last = out.Items, out.LastEvaluatedKey
	}

	page := &Page{Items: items}
	if q.Limit > 0 && int32(len(items)) > q.Limit {
		page.Items = items[:q.Limit]
		last = s.cursorKey(q, page.Items[len(page.Items)-1])
	}
	if len(last) > 0 {
		c, err := encodeCursor(last)
		if err != nil {
			return nil, err
		}
		page.Cursor = c
	}
	return page, nil
}

// Count returns the number of items matching q, reading every page.
func (s *Store) Count(ctx context.Context, q Query) (int, error) {
	total := 0
	if q.scan() {
		input := s.scanInput(q)
		input.Select = types.SelectCount
		paginator := dynamodb.NewScanPaginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return 0, fmt.Errorf("count %s: %w", q.Kind, err)
			}
			total += int(page.Count)
		}
		return total, nil
	}

	input, err := s.queryInput(q)
	if err != nil {
		return 0, err
	}
	input.Select = types.SelectCount
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", q.Kind, err)
		}
		total += int(page.Count)
	}
	return total, nil
}

// QueryAll returns every item matching q, ignoring q.Limit.
func (s *Store) QueryAll(ctx context.Context, q Query) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	if q.scan() {
		paginator := dynamodb.NewScanPaginator(s.client, s.scanInput(q))
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", q.Kind, err)
			}
			items = append(items, page.Items...)
		}
		return items, nil
	}

	input, err := s.queryInput(q)
	if err != nil {
		return nil, err
	}
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Kind, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (s *Store) scanInput(q Query) *dynamodb.ScanInput {
	return &dynamodb.ScanInput{
		TableName: aws.String(s.config.table(q.Kind)),
	}
}

func (s *Store) queryInput(q Query) (*dynamodb.QueryInput, error) {
	value, err := attributevalue.Marshal(q.Value)
	if err != nil {
		return nil, fmt.Errorf("marshal query value: %w", err)
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.table(q.Kind)),
		KeyConditionExpression:    aws.String("#k = :k"),
		ExpressionAttributeNames:  map[string]string{"#k": q.Attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":k": value},
	}
	if q.IndexName != "" {
		input.IndexName = aws.String(q.IndexName)
	}
	return input, nil
}

// cursorKey builds the exclusive start key that resumes after item.
// Index queries need the index key as well as the table key.
func (s *Store) cursorKey(q Query, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{"id": item["id"]}
	if !q.scan() {
		if v, ok := item[q.Attr]; ok {
			key[q.Attr] = v
		}
	}
	return key
}

// isConditionFailed reports whether err is a failed condition expression.
func isConditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// mapConditionError maps a failed condition to ErrNotFound when the
// document was absent and to ErrConditionFailed otherwise.
func mapConditionError(err error, key Key, op string) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		if condErr.Item == nil {
			return ErrNotFound
		}
		return ErrConditionFailed
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}

// mapCursorError turns DynamoDB's rejection of a supplied start key into
// ErrInvalidCursor.
func mapCursorError(err error, cursor string) error {
	var apiErr smithy.APIError
	if cursor != "" && errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return fmt.Errorf("%w: %s", ErrInvalidCursor, apiErr.ErrorMessage())
	}
	return err
}

// joinStrings joins strings with a separator (avoiding strings package import).
func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for _, s := range strs[1:] {
		result += sep + s
	}
	return result
}
