//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run against DynamoDB Local with:
//
//	docker run -p 8000:8000 amazon/dynamodb-local
//	go test -tags=e2e -v ./e2e/...
//
// Set MOORAGE_E2E_ENDPOINT="" and AWS credentials to run against AWS.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/moorage/internal/fleet"
	"github.com/jacentio/moorage/store"
)

const (
	defaultEndpoint = "http://localhost:8000"

	// Table names are unique per test run to avoid conflicts.
	tablePrefix = "moorage-e2e-test"

	ownerIndex   = "owner-index"
	carrierIndex = "carrier-index"
)

var (
	testID     string
	boatsTable string
	loadsTable string
	usersTable string

	ddbClient *dynamodb.Client
	testStore *store.Store
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	boatsTable = fmt.Sprintf("%s-%s-boats", tablePrefix, testID)
	loadsTable = fmt.Sprintf("%s-%s-loads", tablePrefix, testID)
	usersTable = fmt.Sprintf("%s-%s-users", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Tables:\n")
	fmt.Printf("  - Boats: %s\n", boatsTable)
	fmt.Printf("  - Loads: %s\n", loadsTable)
	fmt.Printf("  - Users: %s\n", usersTable)

	endpoint, ok := os.LookupEnv("MOORAGE_E2E_ENDPOINT")
	if !ok {
		endpoint = defaultEndpoint
	}
	clientCfg := store.ClientConfig{Region: "us-east-1", Endpoint: endpoint}
	if endpoint != "" {
		clientCfg.AccessKeyID = "local"
		clientCfg.SecretAccessKey = "local"
	}

	ctx := context.Background()
	var err error
	ddbClient, err = store.NewClient(ctx, clientCfg)
	if err != nil {
		fmt.Printf("Failed to create DynamoDB client: %v\n", err)
		os.Exit(1)
	}

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	testStore = store.New(ddbClient, fleet.StoreConfig(fleet.Tables{
		Boats: boatsTable,
		Loads: loadsTable,
		Users: usersTable,
	}, 5))

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	inputs := []*dynamodb.CreateTableInput{
		{
			TableName: aws.String(boatsTable),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeN},
				{AttributeName: aws.String("owner"), AttributeType: types.ScalarAttributeTypeS},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				{
					IndexName: aws.String(ownerIndex),
					KeySchema: []types.KeySchemaElement{
						{AttributeName: aws.String("owner"), KeyType: types.KeyTypeHash},
						{AttributeName: aws.String("id"), KeyType: types.KeyTypeRange},
					},
					Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
				},
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(loadsTable),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeN},
				{AttributeName: aws.String("carrier"), AttributeType: types.ScalarAttributeTypeN},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				{
					IndexName: aws.String(carrierIndex),
					KeySchema: []types.KeySchemaElement{
						{AttributeName: aws.String("carrier"), KeyType: types.KeyTypeHash},
						{AttributeName: aws.String("id"), KeyType: types.KeyTypeRange},
					},
					Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
				},
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(usersTable),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			},
			BillingMode: types.BillingModePayPerRequest,
		},
	}

	for _, input := range inputs {
		if _, err := ddbClient.CreateTable(ctx, input); err != nil {
			return fmt.Errorf("create table %s: %w", *input.TableName, err)
		}
	}

	for _, tableName := range []string{boatsTable, loadsTable, usersTable} {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", tableName, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	for _, tableName := range []string{boatsTable, loadsTable, usersTable} {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", tableName, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

// eventually retries check until it passes or the deadline expires.
// Index reads on DynamoDB are eventually consistent.
func eventually(t *testing.T, check func() error) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		err := check()
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal(err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func newService() *fleet.Service {
	return fleet.NewService(
		fleet.NewDynamoBoats(testStore, ownerIndex),
		fleet.NewDynamoLoads(testStore, carrierIndex),
		fleet.NewDynamoUsers(testStore),
		nil,
	)
}

func ptr[T any](v T) *T { return &v }

func boatInput(name string) fleet.BoatInput {
	return fleet.BoatInput{Name: ptr(name), Type: ptr("Sailboat"), Length: ptr(int64(12))}
}

func loadInput(item string) fleet.LoadInput {
	return fleet.LoadInput{Volume: ptr(int64(5)), Item: ptr(item), CreationDate: ptr("01/02/2024")}
}

// --- Store ---

type boatDoc struct {
	ID    int64  `dynamodbav:"id"`
	Name  string `dynamodbav:"name"`
	Owner string `dynamodbav:"owner"`
}

func TestStore_InsertGetUpdateDelete(t *testing.T) {
	ctx := context.Background()

	id, err := testStore.Insert(ctx, "boat", boatDoc{Name: "Orca", Owner: "store-" + testID})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 || id > 1<<53-1 {
		t.Errorf("expected id in (0, 2^53), got %d", id)
	}

	key := store.IDKey("boat", id)
	var got boatDoc
	if err := testStore.Get(ctx, key, &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != id || got.Name != "Orca" {
		t.Errorf("unexpected document %+v", got)
	}

	wrongOwner := store.Equals("owner", "someone-else")
	err = testStore.Update(ctx, key, store.Update{Set: map[string]any{"name": "Narwhal"}, Condition: &wrongOwner}, nil)
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed, got %v", err)
	}

	var updated boatDoc
	if err := testStore.Update(ctx, key, store.Update{Set: map[string]any{"name": "Narwhal"}}, &updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Narwhal" || updated.Owner != got.Owner {
		t.Errorf("unexpected updated document %+v", updated)
	}

	exists := store.Exists()
	if err := testStore.Delete(ctx, key, &exists); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := testStore.Get(ctx, key, &got); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Updates never recreate a deleted document.
	err = testStore.Update(ctx, key, store.Update{Set: map[string]any{"name": "Ghost"}}, nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating deleted document, got %v", err)
	}
	if err := testStore.Delete(ctx, key, &exists); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestStore_InvalidCursor(t *testing.T) {
	ctx := context.Background()

	q := store.Query{Kind: "boat", IndexName: ownerIndex, Attr: "owner", Value: "x", Limit: 5}
	for _, cursor := range []string{"not-base64!", "eyJmb28iOnsiUyI6ImJhciJ9fQ"} {
		if _, err := testStore.QueryPage(ctx, q, cursor); !errors.Is(err, store.ErrInvalidCursor) {
			t.Errorf("cursor %q: expected ErrInvalidCursor, got %v", cursor, err)
		}
	}
}
