// Package dynamo implements the counter store on a DynamoDB table with TTL.
package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kailas-cloud/geminibot/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	keyAttribute   = "date"
	countAttribute = "usage_count"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config holds table settings.
type Config struct {
	Table        string
	Region       string
	Endpoint     string // optional, e.g. DynamoDB Local
	TTLAttribute string
}

// Store keeps one item per counter key: {date, usage_count, <ttl attribute>}.
type Store struct {
	client  API
	table   string
	ttlAttr string
}

// NewStore creates a store using the default AWS credential chain.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("table is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.Table, cfg.TTLAttribute), nil
}

// New creates a store over an existing client.
func New(client API, table, ttlAttr string) *Store {
	if ttlAttr == "" {
		ttlAttr = "expires_at"
	}
	return &Store{client: client, table: table, ttlAttr: ttlAttr}
}

// IncrWithExpiry issues a single UpdateItem:
// ADD usage_count :inc SET <ttl> = if_not_exists(<ttl>, :exp).
// The item is created on first write; the TTL attribute is never overwritten.
func (s *Store) IncrWithExpiry(ctx context.Context, key string, val int64, expireAt time.Time) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.key(key),
		UpdateExpression: aws.String("ADD #count :inc SET #ttl = if_not_exists(#ttl, :exp)"),
		ExpressionAttributeNames: map[string]string{
			"#count": countAttribute,
			"#ttl":   s.ttlAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: strconv.FormatInt(val, 10)},
			":exp": &types.AttributeValueMemberN{Value: strconv.FormatInt(expireAt.Unix(), 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, &db.Error{Op: db.OpUpdateItem, Err: err}
	}

	n, err := readCount(out.Attributes)
	if err != nil {
		return 0, &db.Error{Op: db.OpUpdateItem, Err: err}
	}
	return n, nil
}

// GetCounter reads usage_count with a strongly consistent read.
func (s *Store) GetCounter(ctx context.Context, key string) (int64, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.table),
		Key:                  s.key(key),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("#count"),
		ExpressionAttributeNames: map[string]string{
			"#count": countAttribute,
		},
	})
	if err != nil {
		return 0, &db.Error{Op: db.OpGetItem, Err: err}
	}
	if len(out.Item) == 0 {
		return 0, db.ErrKeyNotFound
	}

	n, err := readCount(out.Item)
	if err != nil {
		return 0, &db.Error{Op: db.OpGetItem, Err: err}
	}
	return n, nil
}

// Ping checks that the table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	}); err != nil {
		return fmt.Errorf("ping: %w", &db.Error{Op: db.OpDescribeTable, Err: err})
	}
	return nil
}

// Close is a no-op: the SDK client holds no long-lived connections to release.
func (s *Store) Close() {}

// WaitForReady polls Ping until the table responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for table %s: %w", s.table, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Store) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keyAttribute: &types.AttributeValueMemberS{Value: key},
	}
}

func readCount(item map[string]types.AttributeValue) (int64, error) {
	av, ok := item[countAttribute]
	if !ok {
		return 0, fmt.Errorf("attribute %s missing", countAttribute)
	}
	var n int64
	if err := attributevalue.Unmarshal(av, &n); err != nil {
		return 0, fmt.Errorf("decode %s: %w", countAttribute, err)
	}
	return n, nil
}
