// dyndb/store.go
package dyndb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
)

// DynamoDB limita a 25 operações por BatchWriteItem
const maxBatchWrite = 25

// Store: interface principal (genérica)
type Store[T any] interface {
	Get(ctx context.Context, hashKey, sortKey any) (*T, error)
	Put(ctx context.Context, item T, opts ...WriteOption) error
	Update(ctx context.Context, hashKey, sortKey any, upd Update, opts ...WriteOption) error
	Delete(ctx context.Context, hashKey, sortKey any, opts ...WriteOption) error

	// BatchWrite reenvia apenas os itens não processados, com backoff
	// exponencial limitado. O que sobrar volta como *PartialWriteError.
	BatchWrite(ctx context.Context, puts []T, deletes [][2]any) error

	Query() *QueryBuilder[T]
}

// WriteOption configura o predicado de uma escrita.
type WriteOption func(*writeOptions)

type writeOptions struct {
	cond         *Condition
	mustExist    bool
	mustNotExist bool
}

// WithCondition anexa um predicado arbitrário à escrita.
func WithCondition(c Condition) WriteOption {
	return func(o *writeOptions) {
		if o.cond == nil {
			o.cond = &c
			return
		}
		and := o.cond.And(c)
		o.cond = &and
	}
}

// IfExists exige que a linha já exista.
func IfExists() WriteOption {
	return func(o *writeOptions) { o.mustExist = true }
}

// IfNotExists exige que a linha ainda não exista.
func IfNotExists() WriteOption {
	return func(o *writeOptions) { o.mustNotExist = true }
}

func resolve(hashKey string, opts []WriteOption) *Condition {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.mustExist {
		WithCondition(AttributeExists(hashKey))(&o)
	}
	if o.mustNotExist {
		WithCondition(AttributeNotExists(hashKey))(&o)
	}
	return o.cond
}

// Option configura o Store.
type Option func(*storeOptions)

type storeOptions struct {
	maxPages        int
	batchMaxRetries uint64
	batchBaseDelay  time.Duration
	batchMaxDelay   time.Duration
}

// WithMaxPages limita quantas páginas Collect/All drenam antes de ErrTruncated.
func WithMaxPages(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

// WithBatchRetry define o número máximo de reenvios e os limites do backoff.
func WithBatchRetry(maxRetries int, base, max time.Duration) Option {
	return func(o *storeOptions) {
		if maxRetries >= 0 {
			o.batchMaxRetries = uint64(maxRetries)
		}
		if base > 0 {
			o.batchBaseDelay = base
		}
		if max > 0 {
			o.batchMaxDelay = max
		}
	}
}

type store[T any] struct {
	table Table
	cfg   TableConfig
	opts  storeOptions
}

// New cria um store reutilizável
func New[T any](table Table, opts ...Option) Store[T] {
	o := storeOptions{
		maxPages:        100,
		batchMaxRetries: 5,
		batchBaseDelay:  50 * time.Millisecond,
		batchMaxDelay:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &store[T]{
		table: table,
		cfg:   table.Config(),
		opts:  o,
	}
}

// Get item por chave primária
func (s *store[T]) Get(ctx context.Context, hashKey, sortKey any) (*T, error) {
	raw, err := s.table.GetItem(ctx, s.key(hashKey, sortKey))
	if err != nil {
		return nil, err
	}

	var item T
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("dynamostore: unmarshal failed: %w", err)
	}
	return &item, nil
}

// Put item (upsert, ou condicional)
func (s *store[T]) Put(ctx context.Context, item T, opts ...WriteOption) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("dynamostore: marshal failed: %w", err)
	}
	return s.table.PutItem(ctx, av, resolve(s.cfg.HashKey, opts))
}

// Update aplica uma atualização parcial
func (s *store[T]) Update(ctx context.Context, hashKey, sortKey any, upd Update, opts ...WriteOption) error {
	return s.table.UpdateItem(ctx, s.key(hashKey, sortKey), upd, resolve(s.cfg.HashKey, opts))
}

// Delete item
func (s *store[T]) Delete(ctx context.Context, hashKey, sortKey any, opts ...WriteOption) error {
	return s.table.DeleteItem(ctx, s.key(hashKey, sortKey), resolve(s.cfg.HashKey, opts))
}

// BatchWrite: puts + deletes (máx 25 por chamada)
func (s *store[T]) BatchWrite(ctx context.Context, puts []T, deletes [][2]any) error {
	writeRequests := make([]types.WriteRequest, 0, len(puts)+len(deletes))

	// PUTs
	for _, item := range puts {
		itemMap, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("batchwrite: marshal put item failed: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: itemMap},
		})
	}

	// DELETEs
	for _, key := range deletes {
		writeRequests = append(writeRequests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: s.key(key[0], key[1])},
		})
	}

	var unprocessed []types.WriteRequest
	for i := 0; i < len(writeRequests); i += maxBatchWrite {
		end := min(i+maxBatchWrite, len(writeRequests))

		left, err := s.writeChunk(ctx, writeRequests[i:end])
		if err != nil {
			return err
		}
		unprocessed = append(unprocessed, left...)
	}

	if len(unprocessed) > 0 {
		return &PartialWriteError{Unprocessed: unprocessed}
	}
	return nil
}

// writeChunk envia um lote e reenvia somente o subconjunto não processado.
// Cada tentativa começa depois que a anterior terminou.
func (s *store[T]) writeChunk(ctx context.Context, reqs []types.WriteRequest) ([]types.WriteRequest, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.batchBaseDelay
	b.MaxInterval = s.opts.batchMaxDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithMaxRetries(b, s.opts.batchMaxRetries)

	pending := reqs
	for {
		left, err := s.table.BatchWriteItem(ctx, pending)
		if err != nil {
			return nil, err
		}
		if len(left) == 0 {
			return nil, nil
		}
		pending = left

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return pending, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return pending, ctx.Err()
		case <-timer.C:
		}
	}
}

// Query inicia uma Query
func (s *store[T]) Query() *QueryBuilder[T] {
	return &QueryBuilder[T]{
		store: s,
		spec:  QuerySpec{Forward: true},
	}
}

func (s *store[T]) key(hashKey, sortKey any) Item {
	key := Item{
		s.cfg.HashKey: attr(hashKey),
	}
	if s.cfg.SortKey != "" && sortKey != nil {
		key[s.cfg.SortKey] = attr(sortKey)
	}
	return key
}

// attr converte qualquer valor para types.AttributeValue
func attr(v any) types.AttributeValue {
	if v == nil {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	return av
}
