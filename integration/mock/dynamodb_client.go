package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// keyAttributes are the partition key names the mock recognizes: "key" for
// checkpoint tables and "id" for result tables.
var keyAttributes = []string{"key", "id"}

// DynamoDBClient is a mock implementation of aws.DynamoDBClient for testing.
// Items are stored per table under their partition key.
type DynamoDBClient struct {
	// Thread-safe map of table data: tableName -> partition key -> attributes
	tableData     map[string]map[string]map[string]types.AttributeValue
	mu            sync.RWMutex
	batchWrites   []dynamodb.BatchWriteItemInput
	puts          int
	failNextWrite bool
	failMu        sync.Mutex
}

// NewDynamoDBClient creates a new mock DynamoDB client
func NewDynamoDBClient() *DynamoDBClient {
	return &DynamoDBClient{
		tableData:   make(map[string]map[string]map[string]types.AttributeValue),
		batchWrites: make([]dynamodb.BatchWriteItemInput, 0),
	}
}

// partitionKey returns the string form of the item's partition key.
func partitionKey(item map[string]types.AttributeValue) (string, error) {
	for _, name := range keyAttributes {
		if v, ok := item[name]; ok {
			if s := attributeToString(v); s != "" {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("item has no partition key attribute (want one of %v)", keyAttributes)
}

// attributeToString converts an AttributeValue to a string for key generation
func attributeToString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	default:
		return ""
	}
}

// SetFailNextWrite configures the client to fail the next write operation
func (m *DynamoDBClient) SetFailNextWrite(fail bool) {
	m.failMu.Lock()
	defer m.failMu.Unlock()

	m.failNextWrite = fail
}

// shouldFail safely checks and resets the failNextWrite flag
func (m *DynamoDBClient) shouldFail() bool {
	m.failMu.Lock()
	defer m.failMu.Unlock()

	if m.failNextWrite {
		m.failNextWrite = false
		return true
	}
	return false
}

func (m *DynamoDBClient) put(table string, item map[string]types.AttributeValue) error {
	pk, err := partitionKey(item)
	if err != nil {
		return err
	}
	if _, exists := m.tableData[table]; !exists {
		m.tableData[table] = make(map[string]map[string]types.AttributeValue)
	}
	m.tableData[table][pk] = item
	return nil
}

// GetItem implements aws.DynamoDBClient.
func (m *DynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	pk, err := partitionKey(params.Key)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return &dynamodb.GetItemOutput{Item: m.tableData[*params.TableName][pk]}, nil
}

// PutItem implements aws.DynamoDBClient.
func (m *DynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.shouldFail() {
		return nil, fmt.Errorf("simulated put failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if err := m.put(*params.TableName, params.Item); err != nil {
		return nil, err
	}
	return &dynamodb.PutItemOutput{}, nil
}

// BatchWriteItem implements aws.DynamoDBClient.
func (m *DynamoDBClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if m.shouldFail() {
		return nil, fmt.Errorf("simulated batch write failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchWrites = append(m.batchWrites, *params)

	for tableName, writeRequests := range params.RequestItems {
		for _, writeRequest := range writeRequests {
			if writeRequest.PutRequest != nil {
				if err := m.put(tableName, writeRequest.PutRequest.Item); err != nil {
					return nil, err
				}
			}
			if writeRequest.DeleteRequest != nil {
				pk, err := partitionKey(writeRequest.DeleteRequest.Key)
				if err != nil {
					return nil, err
				}
				delete(m.tableData[tableName], pk)
			}
		}
	}

	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: make(map[string][]types.WriteRequest),
	}, nil
}

// GetTableContents returns the items of a table sorted by partition key.
func (m *DynamoDBClient) GetTableContents(tableName string) []map[string]types.AttributeValue {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.tableData[tableName]))
	for k := range m.tableData[tableName] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		items = append(items, m.tableData[tableName][k])
	}
	return items
}

// GetBatchWrites returns the batch write requests that were made
func (m *DynamoDBClient) GetBatchWrites() []dynamodb.BatchWriteItemInput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]dynamodb.BatchWriteItemInput(nil), m.batchWrites...)
}

// Puts returns the number of PutItem calls that succeeded.
func (m *DynamoDBClient) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
