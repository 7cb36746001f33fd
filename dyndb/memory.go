// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package dyndb

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MemoryTable é uma tabela ordenada em memória com suporte a GSIs esparsos,
// escritas condicionais e stream de mudanças. Serve ao runtime local e aos
// testes.
type MemoryTable struct {
	mu     sync.Mutex
	cfg    TableConfig
	rows   map[string]Item
	stream []StreamRecord
	seq    int

	// PageSize limita o número de itens por página de Query (0 = sem limite).
	PageSize int32
	// Unprocessed, quando definido, escolhe quais requisições de um lote
	// são devolvidas como não processadas.
	Unprocessed func(reqs []types.WriteRequest) []types.WriteRequest
}

// NewMemoryTable cria uma tabela vazia.
func NewMemoryTable(cfg TableConfig) *MemoryTable {
	return &MemoryTable{
		cfg:  cfg,
		rows: make(map[string]Item),
	}
}

func (m *MemoryTable) Config() TableConfig {
	return m.cfg
}

func (m *MemoryTable) GetItem(_ context.Context, key Item) (Item, error) {
	id, err := m.rowID(key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(row), nil
}

func (m *MemoryTable) PutItem(_ context.Context, item Item, cond *Condition) error {
	id, err := m.rowID(item)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.rows[id]
	if err := check(cond, old); err != nil {
		m.mu.Unlock()
		return err
	}
	m.write(id, old, maps.Clone(item))
	m.mu.Unlock()
	return nil
}

func (m *MemoryTable) UpdateItem(_ context.Context, key Item, upd Update, cond *Condition) error {
	if upd.IsEmpty() {
		return fmt.Errorf("dyndb: empty update")
	}
	id, err := m.rowID(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.rows[id]
	if err := check(cond, old); err != nil {
		m.mu.Unlock()
		return err
	}

	next := maps.Clone(old)
	if next == nil {
		next = Item{m.cfg.HashKey: key[m.cfg.HashKey]}
		if m.cfg.SortKey != "" {
			next[m.cfg.SortKey] = key[m.cfg.SortKey]
		}
	}
	if err := apply(next, upd); err != nil {
		m.mu.Unlock()
		return err
	}
	m.write(id, old, next)
	m.mu.Unlock()
	return nil
}

func (m *MemoryTable) DeleteItem(_ context.Context, key Item, cond *Condition) error {
	id, err := m.rowID(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.rows[id]
	if err := check(cond, old); err != nil {
		m.mu.Unlock()
		return err
	}
	m.write(id, old, nil)
	m.mu.Unlock()
	return nil
}

func (m *MemoryTable) Query(_ context.Context, q QuerySpec) (Page, error) {
	hashAttr, sortAttr := m.cfg.HashKey, m.cfg.SortKey
	if q.IndexName != "" {
		idx, err := m.cfg.index(q.IndexName)
		if err != nil {
			return Page{}, err
		}
		hashAttr, sortAttr = idx.HashKey, idx.SortKey
	}
	hashValue, err := attributevalue.Marshal(q.HashValue)
	if err != nil {
		return Page{}, err
	}

	m.mu.Lock()
	var matched []Item
	for _, row := range m.rows {
		if !avEqual(row[hashAttr], hashValue) {
			continue
		}
		if _, ok := row[sortAttr]; !ok && sortAttr != "" {
			continue
		}
		sortValue := stringValue(row[sortAttr])
		switch q.SortOp {
		case KeyOpEqual:
			if sortValue != fmt.Sprint(q.SortValue) {
				continue
			}
		case KeyOpBeginsWith:
			if !strings.HasPrefix(sortValue, fmt.Sprint(q.SortValue)) {
				continue
			}
		}
		matched = append(matched, maps.Clone(row))
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := stringValue(matched[i][sortAttr]), stringValue(matched[j][sortAttr])
		if a == b {
			a, b = m.primaryID(matched[i]), m.primaryID(matched[j])
		}
		if q.Forward {
			return a < b
		}
		return a > b
	})

	if len(q.StartKey) > 0 {
		start := m.primaryID(q.StartKey)
		for i, row := range matched {
			if m.primaryID(row) == start {
				matched = matched[i+1:]
				break
			}
		}
	}

	limit := int(q.Limit)
	if m.PageSize > 0 && (limit == 0 || int(m.PageSize) < limit) {
		limit = int(m.PageSize)
	}

	var page Page
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
		last := matched[limit-1]
		page.LastKey = Item{m.cfg.HashKey: last[m.cfg.HashKey]}
		if m.cfg.SortKey != "" {
			page.LastKey[m.cfg.SortKey] = last[m.cfg.SortKey]
		}
		if q.IndexName != "" {
			page.LastKey[hashAttr] = last[hashAttr]
			page.LastKey[sortAttr] = last[sortAttr]
		}
	}

	// como no DynamoDB, o filtro é aplicado depois do limite
	for _, row := range matched {
		ok := true
		for _, f := range q.Filters {
			if ok, err = f.eval(row); err != nil {
				return Page{}, err
			}
			if !ok {
				break
			}
		}
		if ok {
			page.Items = append(page.Items, row)
		}
	}
	return page, nil
}

func (m *MemoryTable) BatchWriteItem(ctx context.Context, reqs []types.WriteRequest) ([]types.WriteRequest, error) {
	if len(reqs) > maxBatchWrite {
		return nil, fmt.Errorf("batchwrite failed: %d requests exceed the limit of %d", len(reqs), maxBatchWrite)
	}

	var left []types.WriteRequest
	if m.Unprocessed != nil {
		left = m.Unprocessed(reqs)
	}

	for _, req := range reqs {
		if slices.ContainsFunc(left, func(l types.WriteRequest) bool { return reflect.DeepEqual(l, req) }) {
			continue
		}
		switch {
		case req.PutRequest != nil:
			if err := m.PutItem(ctx, req.PutRequest.Item, nil); err != nil {
				return nil, err
			}
		case req.DeleteRequest != nil:
			if err := m.DeleteItem(ctx, req.DeleteRequest.Key, nil); err != nil {
				return nil, err
			}
		}
	}
	return left, nil
}

// Drain devolve e descarta os registros acumulados no stream.
func (m *MemoryTable) Drain() []StreamRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.stream
	m.stream = nil
	return out
}

// Items devolve uma cópia de todas as linhas, ordenadas por chave primária.
func (m *MemoryTable) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := slices.Sorted(maps.Keys(m.rows))
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, maps.Clone(m.rows[id]))
	}
	return out
}

// write aplica a mudança e registra o evento correspondente. Deve ser
// chamado com o lock adquirido.
func (m *MemoryTable) write(id string, old, next Item) {
	if old == nil && next == nil {
		return
	}

	m.seq++
	rec := StreamRecord{
		EventID:  fmt.Sprintf("mem-%08d", m.seq),
		OldImage: old,
		NewImage: next,
	}

	switch {
	case next == nil:
		delete(m.rows, id)
		rec.EventName = EventRemove
		rec.Keys = m.keyOf(old)
	case old == nil:
		m.rows[id] = next
		rec.EventName = EventInsert
		rec.Keys = m.keyOf(next)
	default:
		m.rows[id] = next
		rec.EventName = EventModify
		rec.Keys = m.keyOf(next)
	}

	m.stream = append(m.stream, rec)
}

func (m *MemoryTable) keyOf(item Item) Item {
	key := Item{m.cfg.HashKey: item[m.cfg.HashKey]}
	if m.cfg.SortKey != "" {
		key[m.cfg.SortKey] = item[m.cfg.SortKey]
	}
	return key
}

func (m *MemoryTable) rowID(item Item) (string, error) {
	if _, ok := item[m.cfg.HashKey].(*types.AttributeValueMemberS); !ok {
		return "", fmt.Errorf("dyndb: item is missing string hash key %q", m.cfg.HashKey)
	}
	if m.cfg.SortKey != "" {
		if _, ok := item[m.cfg.SortKey].(*types.AttributeValueMemberS); !ok {
			return "", fmt.Errorf("dyndb: item is missing string sort key %q", m.cfg.SortKey)
		}
	}
	return m.primaryID(item), nil
}

func (m *MemoryTable) primaryID(item Item) string {
	id := stringValue(item[m.cfg.HashKey])
	if m.cfg.SortKey != "" {
		id += "\x00" + stringValue(item[m.cfg.SortKey])
	}
	return id
}

func check(cond *Condition, row Item) error {
	if cond == nil {
		return nil
	}
	ok, err := cond.eval(row)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConditionFailed
	}
	return nil
}

func (c Condition) eval(row Item) (bool, error) {
	switch c.op {
	case condExists:
		_, ok := row[c.name]
		return ok, nil
	case condNotExists:
		_, ok := row[c.name]
		return !ok, nil
	case condEqual:
		want, err := attributevalue.Marshal(c.value)
		if err != nil {
			return false, err
		}
		return avEqual(row[c.name], want), nil
	case condAnd:
		for _, term := range c.terms {
			ok, err := term.eval(row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("dyndb: empty condition")
}

func apply(row Item, upd Update) error {
	for _, c := range upd.clauses {
		switch c.kind {
		case updateSet:
			av, err := attributevalue.Marshal(c.value)
			if err != nil {
				return err
			}
			row[c.name] = av
		case updateAdd:
			var current int64
			if n, ok := row[c.name].(*types.AttributeValueMemberN); ok {
				v, err := strconv.ParseInt(n.Value, 10, 64)
				if err != nil {
					return fmt.Errorf("dyndb: attribute %s is not an integer: %w", c.name, err)
				}
				current = v
			}
			row[c.name] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+c.delta, 10)}
		case updateRemove:
			delete(row, c.name)
		}
	}
	return nil
}

func stringValue(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func avEqual(a, b types.AttributeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *types.AttributeValueMemberS:
		y, ok := b.(*types.AttributeValueMemberS)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberN:
		y, ok := b.(*types.AttributeValueMemberN)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberBOOL:
		y, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && x.Value == y.Value
	}
	return reflect.DeepEqual(a, b)
}
