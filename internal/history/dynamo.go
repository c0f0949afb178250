package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
)

const skPrefixExchange = "EX#"

// skTimeLayout is fixed-width so lexicographic sort-key order equals
// chronological order, sub-second timestamps included.
const skTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dynamodbAPI is the minimal DynamoDB interface required by
// DynamoStore. Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps one item per exchange in a single-table layout,
// partitioned by owner.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("history: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("history: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

// ownerPK returns the partition key for an owner's history.
func ownerPK(owner string) string {
	return "USER#" + owner
}

// exchangeSK returns the sort key for an exchange created at ts.
func exchangeSK(ts time.Time) string {
	return skPrefixExchange + ts.UTC().Format(skTimeLayout)
}

// CreateExchange persists one exchange. The conditional put rejects
// sort-key collisions instead of silently overwriting history.
func (s *DynamoStore) CreateExchange(ctx context.Context, ex domain.Exchange) (domain.Exchange, error) {
	if strings.TrimSpace(ex.Owner) == "" {
		return domain.Exchange{}, errors.New("history: CreateExchange: owner is required")
	}
	ex = assignIdentity(ex)

	item, err := exchangeItem(ex)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("history: CreateExchange encode: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("history: CreateExchange: %w", err)
	}
	return ex, nil
}

// ListExchanges queries all EX# items for an owner, oldest first.
func (s *DynamoStore) ListExchanges(ctx context.Context, owner string) ([]domain.Exchange, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ownerPK(owner)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixExchange},
		},
		ScanIndexForward: aws.Bool(true),
	}

	out, err := s.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("history: ListExchanges query: %w", err)
	}

	exchanges := make([]domain.Exchange, 0, len(out.Items))
	for _, item := range out.Items {
		ex, err := itemToExchange(item)
		if err != nil {
			return nil, fmt.Errorf("history: ListExchanges decode: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

func exchangeItem(ex domain.Exchange) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: ownerPK(ex.Owner)},
		"SK":        &types.AttributeValueMemberS{Value: exchangeSK(ex.CreatedAt)},
		"id":        &types.AttributeValueMemberS{Value: ex.ID},
		"owner":     &types.AttributeValueMemberS{Value: ex.Owner},
		"prompt":    &types.AttributeValueMemberS{Value: ex.Prompt},
		"reply":     &types.AttributeValueMemberS{Value: ex.Reply},
		"status":    &types.AttributeValueMemberS{Value: string(ex.Status)},
		"createdAt": &types.AttributeValueMemberS{Value: ex.CreatedAt.UTC().Format(time.RFC3339Nano)},
	}
	if len(ex.Metadata) > 0 {
		raw, err := json.Marshal(ex.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		item["metadata"] = &types.AttributeValueMemberS{Value: string(raw)}
	}
	return item, nil
}

func itemToExchange(item map[string]types.AttributeValue) (domain.Exchange, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Exchange{}, err
	}
	owner, err := strAttr(item, "owner")
	if err != nil {
		return domain.Exchange{}, err
	}
	prompt, err := strAttr(item, "prompt")
	if err != nil {
		return domain.Exchange{}, err
	}
	createdRaw, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.Exchange{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("parse createdAt: %w", err)
	}
	reply, _ := strAttr(item, "reply")   // allow empty
	status, _ := strAttr(item, "status") // allow empty

	ex := domain.Exchange{
		ID:        id,
		Owner:     owner,
		Prompt:    prompt,
		Reply:     reply,
		Status:    domain.ExchangeStatus(status),
		CreatedAt: createdAt,
	}
	if ex.Status == "" {
		ex.Status = domain.StatusComplete
	}
	if raw, rawErr := strAttr(item, "metadata"); rawErr == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &ex.Metadata); err != nil {
			return domain.Exchange{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return ex, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("history: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("history: attribute %q is not a string", key)
	}
	return s.Value, nil
}
