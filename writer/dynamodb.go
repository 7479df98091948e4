package writer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/aws"
)

// maxBatchSize is the BatchWriteItem request limit.
const maxBatchSize = 25

const (
	baseDelay = 100 * time.Millisecond
	maxDelay  = 30 * time.Second

	// maxUnprocessedRetries bounds the resends of items the table keeps
	// returning as unprocessed.
	maxUnprocessedRetries = 10
)

// item is the table layout of a Result. The partition key is "id"; the
// selected output is stored as a JSON string since SDK output values do not
// map onto attribute values.
type item struct {
	ID           string `dynamodbav:"id"`
	Source       string `dynamodbav:"source"`
	Offset       int64  `dynamodbav:"offset"`
	InvocationID string `dynamodbav:"invocationId,omitempty"`
	Output       string `dynamodbav:"output,omitempty"`
	Error        string `dynamodbav:"error,omitempty"`
}

// DynamoDBWriter puts one item per result, batching up to 25 puts per call
// and retrying with exponential backoff.
type DynamoDBWriter struct {
	client    aws.DynamoDBClient
	tableName string
	batchSize int // Maximum number of puts per batch (≤25)
}

// NewDynamoDBWriter creates a DynamoDBWriter from a dynamodb://table URI.
func NewDynamoDBWriter(client aws.DynamoDBClient, uri string, batchSize int) (*DynamoDBWriter, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid DynamoDB URI: %w", err)
	}
	if u.Scheme != "dynamodb" || u.Host == "" {
		return nil, fmt.Errorf("invalid DynamoDB URI %s (must be dynamodb://table)", uri)
	}
	if batchSize <= 0 || batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	return &DynamoDBWriter{client: client, tableName: u.Host, batchSize: batchSize}, nil
}

// isThrottlingError returns true if the error is a DynamoDB throughput
// throttling error. These are recoverable by waiting for capacity to refill.
func isThrottlingError(err error) bool {
	var throughputErr *types.ProvisionedThroughputExceededException
	var requestLimitErr *types.RequestLimitExceeded
	return errors.As(err, &throughputErr) || errors.As(err, &requestLimitErr)
}

// backoff is the wait before retry attempt. Tests shorten it.
var backoff = exponentialBackoff

// exponentialBackoff doubles baseDelay per attempt up to maxDelay and adds
// up to the same again as jitter.
func exponentialBackoff(attempt int) time.Duration {
	delay := maxDelay
	if attempt < 0 {
		attempt = 0
	}
	// 2^9 * 100ms is past maxDelay, so larger shifts are never needed.
	if attempt < 9 {
		delay = min(baseDelay<<uint(attempt), maxDelay)
	}
	return delay + time.Duration(rand.Int64N(int64(delay)))
}

// backoffWait sleeps before the next attempt. Returns false if the context
// is cancelled during the wait.
func backoffWait(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(backoff(attempt)):
		return true
	case <-ctx.Done():
		return false
	}
}

func toItem(r Result) (map[string]types.AttributeValue, error) {
	it := item{
		ID:           r.ID(),
		Source:       r.Source,
		Offset:       r.Offset,
		InvocationID: r.InvocationID,
		Error:        r.Error,
	}
	if r.Output != nil {
		data, err := json.Marshal(r.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to encode output of %s: %w", it.ID, err)
		}
		it.Output = string(data)
	}
	return attributevalue.MarshalMap(it)
}

// WriteBatch implements Writer. Results are written immediately.
func (w *DynamoDBWriter) WriteBatch(ctx context.Context, results []Result) error {
	for i := 0; i < len(results); i += w.batchSize {
		end := min(i+w.batchSize, len(results))

		requests := make([]types.WriteRequest, 0, end-i)
		for _, r := range results[i:end] {
			av, err := toItem(r)
			if err != nil {
				return err
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}
		if err := w.write(ctx, requests); err != nil {
			return err
		}
	}
	return nil
}

// write sends one batch. Throttling retries until the context is cancelled;
// other errors fail after maxRetries attempts. Items still unprocessed after
// maxUnprocessedRetries resends fail the batch.
func (w *DynamoDBWriter) write(ctx context.Context, requests []types.WriteRequest) error {
	const maxRetries = 5
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{w.tableName: requests},
	}

	attempt, resends := 0, 0
	for {
		output, err := w.client.BatchWriteItem(ctx, input)
		if err != nil {
			if !isThrottlingError(err) && attempt >= maxRetries {
				return fmt.Errorf("failed to write results after %d retries: %w", maxRetries, err)
			}
			if !backoffWait(ctx, attempt) {
				return ctx.Err()
			}
			attempt++
			continue
		}

		// Unprocessed items indicate throttling
		if len(output.UnprocessedItems) > 0 {
			if resends >= maxUnprocessedRetries {
				return fmt.Errorf("failed to write %d results after %d retries: items left unprocessed",
					len(output.UnprocessedItems[w.tableName]), maxUnprocessedRetries)
			}
			resends++
			input.RequestItems = output.UnprocessedItems
			if !backoffWait(ctx, attempt) {
				return ctx.Err()
			}
			attempt++
			continue
		}
		return nil
	}
}

// Flush implements Writer. Since results are written immediately, this is a no-op.
func (w *DynamoDBWriter) Flush(ctx context.Context) error {
	return nil
}

// Close implements Writer.
func (w *DynamoDBWriter) Close(ctx context.Context) error {
	return nil
}
