// dyndb/query.go
package dyndb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryBuilder: o builder fluente
type QueryBuilder[T any] struct {
	store *store[T]
	spec  QuerySpec
	err   error
}

// === MÉTODOS FLUENTES ===

func (qb *QueryBuilder[T]) Index(name string) *QueryBuilder[T] {
	qb.spec.IndexName = name
	return qb
}

// KeyEqual define a chave de partição; chamado novamente, define igualdade
// na chave de ordenação.
func (qb *QueryBuilder[T]) KeyEqual(key string, value any) *QueryBuilder[T] {
	if qb.spec.HashKey == "" {
		qb.spec.HashKey, qb.spec.HashValue = key, value
		return qb
	}
	qb.spec.SortKey, qb.spec.SortOp, qb.spec.SortValue = key, KeyOpEqual, value
	return qb
}

func (qb *QueryBuilder[T]) KeyBeginsWith(key, prefix string) *QueryBuilder[T] {
	qb.spec.SortKey, qb.spec.SortOp, qb.spec.SortValue = key, KeyOpBeginsWith, prefix
	return qb
}

func (qb *QueryBuilder[T]) FilterEqual(field string, value any) *QueryBuilder[T] {
	qb.spec.Filters = append(qb.spec.Filters, Equal(field, value))
	return qb
}

func (qb *QueryBuilder[T]) Limit(n int32) *QueryBuilder[T] {
	qb.spec.Limit = n
	return qb
}

func (qb *QueryBuilder[T]) ScanForward(forward bool) *QueryBuilder[T] {
	qb.spec.Forward = forward
	return qb
}

func (qb *QueryBuilder[T]) LastKey(token string) *QueryBuilder[T] {
	if token == "" {
		return qb
	}
	key, err := decodeToken(token)
	if err != nil {
		qb.err = err
		return qb
	}
	qb.spec.StartKey = key
	return qb
}

// Exec executa uma única página e devolve o token da próxima
func (qb *QueryBuilder[T]) Exec(ctx context.Context) ([]T, string, error) {
	if err := qb.validate(); err != nil {
		return nil, "", err
	}

	page, err := qb.store.table.Query(ctx, qb.spec)
	if err != nil {
		return nil, "", err
	}
	return unmarshalResults[T](page.Items, page.LastKey)
}

// All devolve uma sequência preguiçosa que drena a paginação. Cada iteração
// recomeça do início. Ao atingir o limite de páginas, a sequência termina
// com ErrTruncated.
func (qb *QueryBuilder[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if err := qb.validate(); err != nil {
			yield(zero, err)
			return
		}

		spec := qb.spec
		for pages := 0; ; pages++ {
			if pages >= qb.store.opts.maxPages {
				yield(zero, ErrTruncated)
				return
			}

			page, err := qb.store.table.Query(ctx, spec)
			if err != nil {
				yield(zero, err)
				return
			}

			for _, raw := range page.Items {
				var t T
				if err := attributevalue.UnmarshalMap(raw, &t); err != nil {
					yield(zero, fmt.Errorf("dynamostore: unmarshal failed: %w", err))
					return
				}
				if !yield(t, nil) {
					return
				}
			}

			if len(page.LastKey) == 0 {
				return
			}
			spec.StartKey = page.LastKey
		}
	}
}

// Collect drena todas as páginas. Em caso de ErrTruncated, devolve também o
// que já foi lido.
func (qb *QueryBuilder[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for item, err := range qb.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (qb *QueryBuilder[T]) validate() error {
	if qb.err != nil {
		return qb.err
	}
	if qb.spec.HashKey == "" {
		return fmt.Errorf("dyndb: query without partition key")
	}
	return nil
}

func unmarshalResults[T any](items []Item, lastKey Item) ([]T, string, error) {
	result := make([]T, 0, len(items))
	for _, item := range items {
		var t T
		if err := attributevalue.UnmarshalMap(item, &t); err != nil {
			return nil, "", err
		}
		result = append(result, t)
	}

	token, err := encodeToken(lastKey)
	if err != nil {
		return nil, "", err
	}
	return result, token, nil
}

// Os tokens carregam apenas chaves string, que é o que a tabela usa.
func encodeToken(key Item) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	plain := make(map[string]string, len(key))
	for name, av := range key {
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("dyndb: non-string key attribute %q in page token", name)
		}
		plain[name] = s.Value
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func decodeToken(token string) (Item, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("dyndb: invalid page token: %w", err)
	}
	var plain map[string]string
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, fmt.Errorf("dyndb: invalid page token: %w", err)
	}
	key := make(Item, len(plain))
	for name, v := range plain {
		key[name] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
