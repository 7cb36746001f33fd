package dyndb_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/form-builder-service/dyndb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ConditionalWrites(t *testing.T) {
	ctx := context.Background()
	_, store := createMemoryStore()

	require.NoError(t, store.Put(ctx, TestItem{PK: "o#1", SK: "A", Name: "Acme"}, dyndb.IfNotExists()))

	err := store.Put(ctx, TestItem{PK: "o#1", SK: "A", Name: "Other"}, dyndb.IfNotExists())
	assert.ErrorIs(t, err, dyndb.ErrConditionFailed)

	err = store.Update(ctx, "o#2", "A", dyndb.NewUpdate().Set("name", "x"), dyndb.IfExists())
	assert.ErrorIs(t, err, dyndb.ErrConditionFailed)

	err = store.Delete(ctx, "o#1", "A", dyndb.WithCondition(dyndb.Equal("name", "Other")))
	assert.ErrorIs(t, err, dyndb.ErrConditionFailed)

	got, err := store.Get(ctx, "o#1", "A")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	require.NoError(t, store.Delete(ctx, "o#1", "A", dyndb.WithCondition(dyndb.Equal("name", "Acme"))))
	_, err = store.Get(ctx, "o#1", "A")
	assert.ErrorIs(t, err, dyndb.ErrNotFound)
}

func TestMemory_CounterUpdates(t *testing.T) {
	ctx := context.Background()
	_, store := createMemoryStore()

	require.NoError(t, store.Put(ctx, TestItem{PK: "w#1", SK: "A", Name: "ws"}))

	for range 3 {
		require.NoError(t, store.Update(ctx, "w#1", "A", dyndb.NewUpdate().Add("count", 1), dyndb.IfExists()))
	}
	require.NoError(t, store.Update(ctx, "w#1", "A", dyndb.NewUpdate().Add("count", -1), dyndb.IfExists()))

	got, err := store.Get(ctx, "w#1", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	// a linha removida não é recriada pelo contador
	require.NoError(t, store.Delete(ctx, "w#1", "A"))
	err = store.Update(ctx, "w#1", "A", dyndb.NewUpdate().Add("count", -1), dyndb.IfExists())
	assert.ErrorIs(t, err, dyndb.ErrConditionFailed)
	_, err = store.Get(ctx, "w#1", "A")
	assert.ErrorIs(t, err, dyndb.ErrNotFound)
}

func TestMemory_UpdateRemove(t *testing.T) {
	ctx := context.Background()
	_, store := createMemoryStore()

	require.NoError(t, store.Put(ctx, TestItem{PK: "f#1", SK: "A", Name: "form", Count: 4}))
	require.NoError(t, store.Update(ctx, "f#1", "A", dyndb.NewUpdate().Remove("count").Set("name", "renamed")))

	got, err := store.Get(ctx, "f#1", "A")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Zero(t, got.Count)
}

func TestMemory_QueryPrefixOrderAndIndex(t *testing.T) {
	ctx := context.Background()
	_, store := createMemoryStore()

	rows := []TestItem{
		{PK: "o#1", SK: "w#2", Name: "ws2"},
		{PK: "o#1", SK: "w#1", Name: "ws1"},
		{PK: "o#1", SK: "u#9", Name: "member", PK1: "u#9", SK1: "o#1"},
		{PK: "o#2", SK: "u#9", Name: "member2", PK1: "u#9", SK1: "o#2"},
		{PK: "o#1", SK: "A", Name: "org"},
	}
	require.NoError(t, store.BatchWrite(ctx, rows, nil))

	workspaces, err := store.Query().KeyEqual("pk", "o#1").KeyBeginsWith("sk", "w#").Collect(ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
	assert.Equal(t, "ws1", workspaces[0].Name)
	assert.Equal(t, "ws2", workspaces[1].Name)

	desc, err := store.Query().KeyEqual("pk", "o#1").KeyBeginsWith("sk", "w#").ScanForward(false).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ws2", desc[0].Name)

	memberships, err := store.Query().Index("GSI1").KeyEqual("pk1", "u#9").Collect(ctx)
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	assert.Equal(t, "o#1", memberships[0].SK1)
	assert.Equal(t, "o#2", memberships[1].SK1)

	exact, err := store.Query().KeyEqual("pk", "o#1").KeyEqual("sk", "A").Collect(ctx)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "org", exact[0].Name)

	filtered, err := store.Query().KeyEqual("pk", "o#1").FilterEqual("name", "ws2").Collect(ctx)
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	_, err = store.Query().Index("GSI9").KeyEqual("pk9", "x").Collect(ctx)
	assert.Error(t, err)
}

func TestMemory_QueryPagination(t *testing.T) {
	ctx := context.Background()
	table, store := createMemoryStore()
	table.PageSize = 2

	for _, sk := range []string{"d#1", "d#2", "d#3", "d#4", "d#5"} {
		require.NoError(t, store.Put(ctx, TestItem{PK: "f#1", SK: sk, Name: sk}))
	}

	page, token, err := store.Query().KeyEqual("pk", "f#1").Exec(ctx)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	require.NotEmpty(t, token)

	page, _, err = store.Query().KeyEqual("pk", "f#1").LastKey(token).Exec(ctx)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d#3", page[0].SK)

	all, err := store.Query().KeyEqual("pk", "f#1").Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemory_QueryTruncated(t *testing.T) {
	ctx := context.Background()
	table, store := createMemoryStore(dyndb.WithMaxPages(2))
	table.PageSize = 1

	for _, sk := range []string{"r#1", "r#2", "r#3"} {
		require.NoError(t, store.Put(ctx, TestItem{PK: "f#1", SK: sk}))
	}

	items, err := store.Query().KeyEqual("pk", "f#1").Collect(ctx)
	assert.ErrorIs(t, err, dyndb.ErrTruncated)
	assert.Len(t, items, 2)
}

func TestMemory_AllStopsEarly(t *testing.T) {
	ctx := context.Background()
	table, store := createMemoryStore()
	table.PageSize = 1

	for _, sk := range []string{"r#1", "r#2", "r#3"} {
		require.NoError(t, store.Put(ctx, TestItem{PK: "f#1", SK: sk}))
	}

	seen := 0
	for _, err := range store.Query().KeyEqual("pk", "f#1").All(ctx) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestMemory_StreamRecords(t *testing.T) {
	ctx := context.Background()
	table, store := createMemoryStore()

	require.NoError(t, store.Put(ctx, TestItem{PK: "u#1", SK: "A", Name: "Jane"}))
	require.NoError(t, store.Update(ctx, "u#1", "A", dyndb.NewUpdate().Set("name", "Janet")))
	require.NoError(t, store.Delete(ctx, "u#1", "A"))
	// remover uma linha inexistente não gera evento
	require.NoError(t, store.Delete(ctx, "u#404", "A"))

	records := table.Drain()
	require.Len(t, records, 3)

	assert.Equal(t, dyndb.EventInsert, records[0].EventName)
	assert.Nil(t, records[0].OldImage)

	assert.Equal(t, dyndb.EventModify, records[1].EventName)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Jane"}, records[1].OldImage["name"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Janet"}, records[1].NewImage["name"])

	assert.Equal(t, dyndb.EventRemove, records[2].EventName)
	assert.Nil(t, records[2].NewImage)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "u#1"}, records[2].Keys["pk"])

	assert.NotEqual(t, records[0].EventID, records[1].EventID)
	assert.Empty(t, table.Drain())
}

func TestMemory_BatchWriteUnprocessedHook(t *testing.T) {
	ctx := context.Background()
	table, store := createMemoryStore()

	calls := 0
	table.Unprocessed = func(reqs []types.WriteRequest) []types.WriteRequest {
		calls++
		if calls == 1 {
			return reqs[len(reqs)-1:]
		}
		return nil
	}

	err := store.BatchWrite(ctx, []TestItem{{PK: "p", SK: "1"}, {PK: "p", SK: "2"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, table.Items(), 2)

	table.Unprocessed = func(reqs []types.WriteRequest) []types.WriteRequest { return reqs }
	err = store.BatchWrite(ctx, nil, [][2]any{{"p", "1"}})
	assert.ErrorIs(t, err, dyndb.ErrPartialWrite)
	assert.Len(t, table.Items(), 2)
}
