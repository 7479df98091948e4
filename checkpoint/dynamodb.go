package checkpoint

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gurre/awsop/aws"
)

// DynamoDBStore keeps one item per key in a table whose partition key is the
// string attribute "key".
type DynamoDBStore struct {
	client aws.DynamoDBClient
	table  string
}

// NewDynamoDBStore creates a DynamoDBStore from a dynamodb://table URI.
// Example:
//
//	store, err := checkpoint.NewDynamoDBStore(client, "dynamodb://awsop-checkpoints")
func NewDynamoDBStore(client aws.DynamoDBClient, uri string) (*DynamoDBStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid DynamoDB URI: %w", err)
	}
	if u.Scheme != "dynamodb" {
		return nil, fmt.Errorf("invalid DynamoDB URI scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid DynamoDB URI %s: table is required", uri)
	}
	return &DynamoDBStore{client: client, table: u.Host}, nil
}

// Load implements Store. Reads are strongly consistent so a resumed run sees
// the last save.
func (d *DynamoDBStore) Load(ctx context.Context, key string) (State, error) {
	consistent := true
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &d.table,
		Key:            map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: key}},
		ConsistentRead: &consistent,
	})
	if err != nil {
		return State{}, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	if len(out.Item) == 0 {
		return State{Key: key}, nil
	}

	var state State
	if err := attributevalue.UnmarshalMap(out.Item, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return state, nil
}

// Save implements Store.
func (d *DynamoDBStore) Save(ctx context.Context, state State) error {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &d.table,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
