package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrDuplicateEntry is returned when an engine was already recorded for a run.
var ErrDuplicateEntry = errors.New("ledger entry already exists")

// Entry is one published result file.
type Entry struct {
	RunID     string
	Engine    string
	URI       string
	Codec     string
	Rows      int
	Bytes     int64
	Host      string
	Published time.Time
}

// Ledger records published result files in a DynamoDB table, one item per
// (run, engine).
//
// Table schema:
//   - Partition key: run_id (string)
//   - Sort key: engine (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name kmeans-runs \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=engine,AttributeType=S \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=engine,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type Ledger struct {
	client DDBClient
	table  string
}

// NewLedger creates a Ledger for table using the default AWS config.
func NewLedger(ctx context.Context, table string, opts ...Option) (*Ledger, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	cfg, err := loadConfig(ctx, &o)
	if err != nil {
		return nil, err
	}
	client := dynamodb.NewFromConfig(cfg, func(do *dynamodb.Options) {
		if o.endpoint != "" {
			do.BaseEndpoint = aws.String(o.endpoint)
		}
	})
	return NewLedgerWithClient(client, table), nil
}

// NewLedgerWithClient creates a Ledger on an existing client.
func NewLedgerWithClient(client DDBClient, table string) *Ledger {
	return &Ledger{client: client, table: table}
}

// Record stores e. Recording the same (run, engine) twice fails with
// ErrDuplicateEntry.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item: map[string]types.AttributeValue{
			"run_id":    &types.AttributeValueMemberS{Value: e.RunID},
			"engine":    &types.AttributeValueMemberS{Value: e.Engine},
			"uri":       &types.AttributeValueMemberS{Value: e.URI},
			"codec":     &types.AttributeValueMemberS{Value: e.Codec},
			"rows":      &types.AttributeValueMemberN{Value: strconv.Itoa(e.Rows)},
			"bytes":     &types.AttributeValueMemberN{Value: strconv.FormatInt(e.Bytes, 10)},
			"host":      &types.AttributeValueMemberS{Value: e.Host},
			"published": &types.AttributeValueMemberS{Value: e.Published.UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(engine)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: run %s engine %s", ErrDuplicateEntry, e.RunID, e.Engine)
		}
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// Entries returns the entries of a run ordered by engine name.
func (l *Ledger) Entries(ctx context.Context, runID string) ([]Entry, error) {
	var entries []Entry
	var startKey map[string]types.AttributeValue
	for {
		resp, err := l.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(l.table),
			KeyConditionExpression: aws.String("run_id = :run"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":run": &types.AttributeValueMemberS{Value: runID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		for _, item := range resp.Items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return entries, nil
		}
		startKey = resp.LastEvaluatedKey
	}
}

func decodeEntry(item map[string]types.AttributeValue) (Entry, error) {
	var e Entry
	var err error
	str := func(name string) string {
		if v, ok := item[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
		err = errors.Join(err, fmt.Errorf("invalid %s attribute in DynamoDB", name))
		return ""
	}
	num := func(name string) int64 {
		v, ok := item[name].(*types.AttributeValueMemberN)
		if !ok {
			err = errors.Join(err, fmt.Errorf("invalid %s attribute in DynamoDB", name))
			return 0
		}
		n, perr := strconv.ParseInt(v.Value, 10, 64)
		if perr != nil {
			err = errors.Join(err, fmt.Errorf("failed to parse %s: %w", name, perr))
		}
		return n
	}

	e.RunID = str("run_id")
	e.Engine = str("engine")
	e.URI = str("uri")
	e.Codec = str("codec")
	e.Host = str("host")
	e.Rows = int(num("rows"))
	e.Bytes = num("bytes")
	if ts := str("published"); ts != "" {
		t, perr := time.Parse(time.RFC3339, ts)
		if perr != nil {
			err = errors.Join(err, fmt.Errorf("failed to parse published: %w", perr))
		}
		e.Published = t
	}
	return e, err
}
