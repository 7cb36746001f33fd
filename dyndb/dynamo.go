package dyndb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoTable struct {
	client DynamoDBClient
	cfg    TableConfig
}

// NewDynamoTable cria o backend DynamoDB para a tabela informada.
func NewDynamoTable(client DynamoDBClient, cfg TableConfig) Table {
	return &dynamoTable{client: client, cfg: cfg}
}

func (t *dynamoTable) Config() TableConfig {
	return t.cfg
}

func (t *dynamoTable) GetItem(ctx context.Context, key Item) (Item, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.cfg.TableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamostore: get failed: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return out.Item, nil
}

func (t *dynamoTable) PutItem(ctx context.Context, item Item, cond *Condition) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.cfg.TableName),
		Item:      item,
	}
	if cond != nil {
		expr, err := buildCondition(*cond)
		if err != nil {
			return err
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := t.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("dynamostore: put failed: %w", translate(err))
	}
	return nil
}

func (t *dynamoTable) UpdateItem(ctx context.Context, key Item, upd Update, cond *Condition) error {
	ub, err := upd.builder()
	if err != nil {
		return err
	}
	builder := expression.NewBuilder().WithUpdate(ub)
	if cond != nil {
		cb, err := cond.builder()
		if err != nil {
			return err
		}
		builder = builder.WithCondition(cb)
	}
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("dynamostore: build update: %w", err)
	}

	_, err = t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.cfg.TableName),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("dynamostore: update failed: %w", translate(err))
	}
	return nil
}

func (t *dynamoTable) DeleteItem(ctx context.Context, key Item, cond *Condition) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(t.cfg.TableName),
		Key:       key,
	}
	if cond != nil {
		expr, err := buildCondition(*cond)
		if err != nil {
			return err
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := t.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("dynamostore: delete failed: %w", translate(err))
	}
	return nil
}

func (t *dynamoTable) Query(ctx context.Context, q QuerySpec) (Page, error) {
	keyCond := expression.KeyEqual(expression.Key(q.HashKey), expression.Value(q.HashValue))
	switch q.SortOp {
	case KeyOpEqual:
		keyCond = keyCond.And(expression.KeyEqual(expression.Key(q.SortKey), expression.Value(q.SortValue)))
	case KeyOpBeginsWith:
		keyCond = keyCond.And(expression.Key(q.SortKey).BeginsWith(fmt.Sprint(q.SortValue)))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if len(q.Filters) > 0 {
		filter := q.Filters[0]
		for _, f := range q.Filters[1:] {
			filter = filter.And(f)
		}
		fb, err := filter.builder()
		if err != nil {
			return Page{}, err
		}
		builder = builder.WithFilter(fb)
	}

	expr, err := builder.Build()
	if err != nil {
		return Page{}, fmt.Errorf("dynamostore: build query: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.cfg.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(q.Forward),
		ExclusiveStartKey:         q.StartKey,
	}
	if q.IndexName != "" {
		input.IndexName = aws.String(q.IndexName)
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(q.Limit)
	}

	out, err := t.client.Query(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("dynamostore: query failed: %w", err)
	}
	return Page{Items: out.Items, LastKey: out.LastEvaluatedKey}, nil
}

func (t *dynamoTable) BatchWriteItem(ctx context.Context, reqs []types.WriteRequest) ([]types.WriteRequest, error) {
	out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			t.cfg.TableName: reqs,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("batchwrite failed: %w", err)
	}
	return out.UnprocessedItems[t.cfg.TableName], nil
}

func buildCondition(cond Condition) (expression.Expression, error) {
	cb, err := cond.builder()
	if err != nil {
		return expression.Expression{}, err
	}
	expr, err := expression.NewBuilder().WithCondition(cb).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("dynamostore: build condition: %w", err)
	}
	return expr, nil
}

// translate converte a falha de predicado do SDK no erro sentinela do pacote.
func translate(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrConditionFailed
	}
	return err
}
