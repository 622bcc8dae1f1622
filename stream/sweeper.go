// Package stream provides DynamoDB Streams handlers that repair references
// left behind by removed documents.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/moorage/store"
)

// Handler clears child references to parents removed from their table.
type Handler struct {
	store    *store.Store
	registry *store.Registry
	logger   *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(s *store.Store, registry *store.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = store.NewRegistry()
	}
	return &Handler{
		store:    s,
		registry: registry,
		logger:   logger,
	}
}

// HandleRemovals processes REMOVE records of parent kinds and removes the
// reference attribute from every child still pointing at the removed
// parent. It is designed to be used as an AWS Lambda handler; a returned
// error makes Lambda retry the batch.
func (h *Handler) HandleRemovals(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// processRecord sweeps the children of a single removed parent.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}

	table := tableFromARN(record.EventSourceArn)
	kind := h.store.KindForTable(table)
	if kind == "" || !h.registry.HasChildren(kind) {
		return nil
	}

	parent, err := store.KeyOf(kind, ConvertStreamKey(record.Change.Keys))
	if err != nil {
		return fmt.Errorf("parent key from %s: %w", table, err)
	}

	cleared := 0
	for _, rel := range h.registry.ChildrenOf(kind) {
		n, err := h.sweep(ctx, rel, parent)
		if err != nil {
			return err
		}
		cleared += n
	}

	if cleared > 0 {
		h.logger.Info("cleared orphaned references",
			"parent", parent.String(),
			"owner", getStringAttr(record.Change.OldImage, "owner"),
			"cleared", cleared,
		)
	}
	return nil
}

// sweep removes rel.ReferenceAttr from the children referencing parent.
// Children that moved or vanished since the query are skipped.
func (h *Handler) sweep(ctx context.Context, rel store.Relationship, parent store.Key) (int, error) {
	value := parentValue(parent)
	children, err := h.store.QueryAll(ctx, rel.ReverseQuery(value))
	if err != nil {
		return 0, fmt.Errorf("query %s children of %s: %w", rel.ChildKind, parent, err)
	}

	cleared := 0
	for _, item := range children {
		child, err := store.KeyOf(rel.ChildKind, item)
		if err != nil {
			return cleared, err
		}

		still := store.Equals(rel.ReferenceAttr, value)
		err = h.store.Update(ctx, child, store.Update{
			Remove:    []string{rel.ReferenceAttr},
			Condition: &still,
		}, nil)
		switch {
		case errors.Is(err, store.ErrConditionFailed), errors.Is(err, store.ErrNotFound):
			h.logger.Debug("child already released", "child", child.String())
		case err != nil:
			return cleared, fmt.Errorf("release %s: %w", child, err)
		default:
			cleared++
		}
	}
	return cleared, nil
}

// parentValue is the value children store to reference parent.
func parentValue(k store.Key) any {
	if k.Name != "" {
		return k.Name
	}
	return k.ID
}

// tableFromARN extracts the table name from a stream or table ARN
// (arn:aws:dynamodb:region:account:table/NAME/stream/LABEL).
func tableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertStreamKey converts a DynamoDB stream key to a store.PK.
func ConvertStreamKey(streamKey map[string]events.DynamoDBAttributeValue) store.PK {
	result := make(store.PK)
	for k, v := range streamKey {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		}
	}
	return result
}
