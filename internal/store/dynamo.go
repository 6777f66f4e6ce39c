package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-saga/internal/aws"
)

// DynamoStore implements Store on DynamoDB tables. Table.Name is the physical
// table name and Table.Key its partition key.
type DynamoStore struct {
	client aws.DynamoDBAPI
	newID  func() string
}

// NewDynamoStore returns a store backed by client.
func NewDynamoStore(client aws.DynamoDBAPI) *DynamoStore {
	return &DynamoStore{
		client: client,
		newID:  uuid.NewString,
	}
}

func keyOf(t Table, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		t.Key: &types.AttributeValueMemberS{Value: key},
	}
}

func isConditionFailure(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}

func (s *DynamoStore) Get(ctx context.Context, t Table, key string, out any) error {
	res, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      sdkaws.String(t.Name),
		Key:            keyOf(t, key),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get item: %w: %w", ErrUnavailable, err)
	}
	if len(res.Item) == 0 {
		return ErrNotFound
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

func (s *DynamoStore) ConditionalCreate(ctx context.Context, t Table, record any) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, ok := item[t.Key].(*types.AttributeValueMemberS); !ok {
		return fmt.Errorf("record has no %s", t.Key)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                sdkaws.String(t.Name),
		Item:                     item,
		ConditionExpression:      sdkaws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": t.Key},
	})
	if err != nil {
		if isConditionFailure(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put item: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Update issues a single UpdateItem guarded by attribute_exists on the key, so
// missing records surface as ErrNotFound instead of being created.
func (s *DynamoStore) Update(ctx context.Context, t Table, key string, fields map[string]any, out any) error {
	return s.update(ctx, t, key, nil, fields, out)
}

func (s *DynamoStore) UpdateIf(ctx context.Context, t Table, key string, expect, fields map[string]any, out any) error {
	return s.update(ctx, t, key, expect, fields, out)
}

func (s *DynamoStore) update(ctx context.Context, t Table, key string, expect, fields map[string]any, out any) error {
	if len(fields) == 0 {
		return errors.New("update: no fields")
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	exprNames := map[string]string{"#pk": t.Key}
	exprValues := make(map[string]types.AttributeValue, len(names))
	expr := "SET "
	for i, name := range names {
		av, err := attributevalue.Marshal(fields[name])
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", name, err)
		}
		n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		exprNames[n] = name
		exprValues[v] = av
		if i > 0 {
			expr += ", "
		}
		expr += n + " = " + v
	}

	cond := "attribute_exists(#pk)"
	expected := make([]string, 0, len(expect))
	for k := range expect {
		expected = append(expected, k)
	}
	sort.Strings(expected)
	for i, name := range expected {
		av, err := attributevalue.Marshal(expect[name])
		if err != nil {
			return fmt.Errorf("marshal condition %s: %w", name, err)
		}
		n, v := fmt.Sprintf("#c%d", i), fmt.Sprintf(":c%d", i)
		exprNames[n] = name
		exprValues[v] = av
		cond += " AND " + n + " = " + v
	}

	res, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                           sdkaws.String(t.Name),
		Key:                                 keyOf(t, key),
		UpdateExpression:                    sdkaws.String(expr),
		ConditionExpression:                 sdkaws.String(cond),
		ExpressionAttributeNames:            exprNames,
		ExpressionAttributeValues:           exprValues,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if isConditionFailure(err) {
			// The old image comes back only when the record exists.
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) && len(ccf.Item) > 0 {
				return ErrConditionFailed
			}
			return ErrNotFound
		}
		return fmt.Errorf("update item: %w: %w", ErrUnavailable, err)
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

func (s *DynamoStore) Append(ctx context.Context, t Table, record any) (string, error) {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	id := s.newID()
	item[t.Key] = &types.AttributeValueMemberS{Value: id}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: sdkaws.String(t.Name),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("put item: %w: %w", ErrUnavailable, err)
	}
	return id, nil
}
