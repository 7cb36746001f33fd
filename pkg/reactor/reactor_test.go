package reactor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/form-builder-service/dyndb"
	"github.com/raywall/form-builder-service/keyspace"
	"github.com/raywall/form-builder-service/pkg/metrics"
	"github.com/raywall/form-builder-service/pkg/models"
	"github.com/raywall/form-builder-service/pkg/observability"
	"github.com/raywall/form-builder-service/pkg/repository"
)

const now = "2025-01-01T00:00:00.000Z"

// --- Fakes ---

type memDeduper struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func newMemDeduper() *memDeduper {
	return &memDeduper{claimed: make(map[string]bool)}
}

func (m *memDeduper) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.claimed[id] {
		return false, nil
	}
	m.claimed[id] = true
	return true, nil
}

func (m *memDeduper) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, id)
	m.released = append(m.released, id)
	return nil
}

type deadLetters struct {
	sent   []dyndb.StreamRecord
	causes []error
	err    error
}

func (d *deadLetters) Send(_ context.Context, rec dyndb.StreamRecord, cause error) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, rec)
	d.causes = append(d.causes, cause)
	return nil
}

// brokenStore falha em toda operação.
type brokenStore struct{ err error }

func (b brokenStore) AdjustCounter(context.Context, keyspace.Kind, keyspace.Ref, string, int64) (bool, error) {
	return false, b.err
}
func (b brokenStore) DeleteScope(context.Context, keyspace.Scope) (int, error) { return 0, b.err }
func (b brokenStore) Keys(context.Context, keyspace.Scope) ([]models.Row, error) {
	return nil, b.err
}
func (b brokenStore) ListMemberships(context.Context, string) ([]models.Row, error) {
	return nil, b.err
}
func (b brokenStore) Patch(context.Context, models.Row, dyndb.Update) (bool, error) {
	return false, b.err
}

type MockSQS struct {
	mu       sync.Mutex
	inbox    []sqstypes.Message
	sent     []*sqs.SendMessageInput
	deleted  []string
	sendErr  error
	recvErr  error
	received int
}

func (m *MockSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, params)
	return &sqs.SendMessageOutput{}, nil
}

func (m *MockSQS) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received++
	if m.recvErr != nil {
		return nil, m.recvErr
	}
	out := &sqs.ReceiveMessageOutput{Messages: m.inbox}
	m.inbox = nil
	return out, nil
}

func (m *MockSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeRedis struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, exp time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// --- Fixture ---

type env struct {
	table *dyndb.MemoryTable
	repo  *repository.Repository
	stats *observability.MemoryProvider
}

func newEnv() *env {
	table := dyndb.NewMemoryTable(repository.TableConfig("form-builder-test", ""))
	return &env{
		table: table,
		repo:  repository.New(table),
		stats: &observability.MemoryProvider{},
	}
}

func (e *env) dispatcher(opts ...Option) *Dispatcher {
	opts = append([]Option{WithMetrics(metrics.NewProcessor(e.stats))}, opts...)
	return NewDispatcher(e.repo, opts...)
}

func (e *env) account(t *testing.T, userID, first, workspaceID string) {
	t.Helper()
	user, err := models.NewUser(userID, first, "Silva", userID+"@example.com", now)
	require.NoError(t, err)
	org, err := models.NewOrganization(userID, first+"'s Organization", now)
	require.NoError(t, err)
	ws, err := models.NewWorkspace(userID, workspaceID, models.DefaultWorkspaceName, userID, now)
	require.NoError(t, err)
	require.NoError(t, e.repo.CreateAccount(context.Background(), user, org, ws))
}

func (e *env) profile(t *testing.T, userID string) models.Profile {
	t.Helper()
	u, err := e.repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return models.Profile{UserID: u.UserID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// seed monta u1 (dono de w1) com u2 como membro, um formulário com um campo
// e uma resposta.
func (e *env) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	e.account(t, "u1", "Ana", "w1")
	e.account(t, "u2", "Bia", "w2")

	m, err := models.NewOrgMember("u1", "Ana's Organization", e.profile(t, "u2"), models.RoleEditor, "u1", now)
	require.NoError(t, err)
	require.NoError(t, e.repo.AddOrgMember(ctx, m))
	wm, err := models.NewWorkspaceMember("u1", "w1", e.profile(t, "u2"), models.RoleEditor, "u1", now)
	require.NoError(t, err)
	require.NoError(t, e.repo.AddWorkspaceMember(ctx, wm))

	form, err := models.NewForm("u1", "w1", "f1", "Contato", "", "u1", now)
	require.NoError(t, err)
	require.NoError(t, e.repo.CreateForm(ctx, form))
	field, err := models.NewField("f1", "1", map[string]any{"type": "text"})
	require.NoError(t, err)
	require.NoError(t, e.repo.PutFields(ctx, []models.Field{field}))
	resp, err := models.NewResponse("u1", "w1", "f1", "r1", map[string]any{"1": "oi"}, now)
	require.NoError(t, err)
	require.NoError(t, e.repo.CreateResponse(ctx, resp))
}

func (e *env) org(t *testing.T, id string) *models.Organization {
	t.Helper()
	o, err := e.repo.GetOrganization(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (e *env) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.repo.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *env) workspace(t *testing.T, orgID, id string) *models.Workspace {
	t.Helper()
	w, err := e.repo.GetWorkspace(context.Background(), orgID, id)
	require.NoError(t, err)
	return w
}

func (e *env) hasSample(name string, tags ...string) bool {
	for _, s := range e.stats.Samples() {
		if s.Name != name {
			continue
		}
		if len(tags) == 0 || assert.ObjectsAreEqual(tags, s.Tags) {
			return true
		}
	}
	return false
}

// --- Testes ---

func TestDispatcher_Counters(t *testing.T) {
	e := newEnv()
	d := e.dispatcher()
	e.seed(t)
	d.Settle(context.Background(), e.table)

	org := e.org(t, "u1")
	assert.Equal(t, int64(1), org.MemberCount)
	assert.Equal(t, int64(1), org.WorkspaceCount)
	assert.Equal(t, int64(1), org.FormCount)
	assert.Equal(t, int64(1), org.ResponseCount)

	// o dono espelha os contadores da própria organização
	owner := e.user(t, "u1")
	assert.Equal(t, org.MemberCount, owner.MemberCount)
	assert.Equal(t, org.WorkspaceCount, owner.WorkspaceCount)
	assert.Equal(t, org.FormCount, owner.FormCount)
	assert.Equal(t, org.ResponseCount, owner.ResponseCount)

	ws := e.workspace(t, "u1", "w1")
	assert.Equal(t, int64(1), ws.MemberCount)
	assert.Equal(t, int64(1), ws.FormCount)
	assert.Equal(t, int64(1), ws.ResponseCount)

	form, err := e.repo.GetForm(context.Background(), "w1", "f1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), form.ResponseCount)

	// a membership de u2 em u1 não conta na organização do próprio u2
	assert.Zero(t, e.org(t, "u2").MemberCount)
	assert.Equal(t, int64(1), e.org(t, "u2").WorkspaceCount)

	assert.True(t, e.hasSample("reactor.record", "event:INSERT", "kind:WS", "result:ok"))
}

func TestDispatcher_ProfileCopies(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	d := e.dispatcher()
	e.seed(t)

	inv, err := models.NewInvitation("u1", "Ana's Organization", "carla@example.com", models.RoleAdmin, e.profile(t, "u1"), now)
	require.NoError(t, err)
	require.NoError(t, e.repo.CreateInvitation(ctx, inv))
	d.Settle(ctx, e.table)

	require.NoError(t, e.repo.UpdateOrganization(ctx, "u1", dyndb.NewUpdate().Set("name", "Acme")))
	require.NoError(t, e.repo.UpdateUser(ctx, "u2", dyndb.NewUpdate().
		Set("firstName", "Beatriz").
		Set("email", "bea@example.com")))
	d.Settle(ctx, e.table)

	m, err := e.repo.GetOrgMember(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "Acme", m.OrgName)
	assert.Equal(t, "Beatriz", m.FirstName)
	assert.Equal(t, "bea@example.com", m.Email)
	assert.Equal(t, "Silva", m.LastName)
	assert.Equal(t, now, m.UpdatedAt)

	wm, err := e.repo.GetWorkspaceMember(ctx, "u1", "w1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "Beatriz", wm.FirstName)
	assert.Equal(t, "bea@example.com", wm.Email)

	got, err := e.repo.GetInvitation(ctx, "u1", "carla@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.OrgName)
}

func TestDispatcher_Cascades(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	d := e.dispatcher()
	e.seed(t)
	d.Settle(ctx, e.table)

	t.Run("Remover Membro Remove Vínculos de Workspace", func(t *testing.T) {
		require.NoError(t, e.repo.DeleteOrgMember(ctx, "u1", "u2"))
		d.Settle(ctx, e.table)

		_, err := e.repo.GetWorkspaceMember(ctx, "u1", "w1", "u2")
		assert.ErrorIs(t, err, dyndb.ErrNotFound)
		assert.Zero(t, e.org(t, "u1").MemberCount)
		assert.Zero(t, e.workspace(t, "u1", "w1").MemberCount)
	})

	t.Run("Remover Workspace Desce Até Campos e Respostas", func(t *testing.T) {
		require.NoError(t, e.repo.DeleteWorkspace(ctx, "u1", "w1"))
		d.Settle(ctx, e.table)

		_, err := e.repo.GetForm(ctx, "w1", "f1")
		assert.ErrorIs(t, err, dyndb.ErrNotFound)
		fields, err := e.repo.ListFields(ctx, "f1")
		require.NoError(t, err)
		assert.Empty(t, fields)

		org := e.org(t, "u1")
		assert.Zero(t, org.WorkspaceCount)
		assert.Zero(t, org.FormCount)
		assert.Zero(t, org.ResponseCount)
		assert.Zero(t, e.user(t, "u1").FormCount)
	})

	t.Run("Remover Organização", func(t *testing.T) {
		ws, err := models.NewWorkspace("u1", "w3", "Outro", "u1", now)
		require.NoError(t, err)
		require.NoError(t, e.repo.CreateWorkspace(ctx, ws))
		d.Settle(ctx, e.table)

		require.NoError(t, e.repo.DeleteOrganization(ctx, "u1"))
		d.Settle(ctx, e.table)

		wss, err := e.repo.ListWorkspaces(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, wss)

		// a organização de u2 fica intacta
		assert.Equal(t, int64(1), e.org(t, "u2").WorkspaceCount)
	})

	for _, item := range e.table.Items() {
		pk := item[keyspace.AttrPK].(*types.AttributeValueMemberS).Value
		assert.NotContains(t, []string{"WS#w1", "WS#w3", "FORM#f1"}, pk)
	}
}

func TestDispatcher_Dedup(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	dedup := newMemDeduper()
	d := e.dispatcher(WithDeduper(dedup))

	e.account(t, "u1", "Ana", "w1")
	records := e.table.Drain()
	require.NotEmpty(t, records)

	assert.Empty(t, d.Process(ctx, records))
	assert.Empty(t, d.Process(ctx, records))
	assert.Equal(t, int64(1), e.org(t, "u1").WorkspaceCount)
	assert.True(t, e.hasSample("reactor.record", "event:INSERT", "kind:WS", "result:duplicate"))

	t.Run("Deduplicação Indisponível Processa Assim Mesmo", func(t *testing.T) {
		f := newEnv()
		broken := newMemDeduper()
		broken.err = errors.New("redis down")
		d := f.dispatcher(WithDeduper(broken))

		f.account(t, "u1", "Ana", "w1")
		assert.Empty(t, d.Process(ctx, f.table.Drain()))
		assert.Equal(t, int64(1), f.org(t, "u1").WorkspaceCount)
	})
}

func TestDispatcher_Failures(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.account(t, "u1", "Ana", "w1")
	records := e.table.Drain()

	boom := errors.New("throttled")

	t.Run("Falha Vai Para a DLQ", func(t *testing.T) {
		dedup := newMemDeduper()
		dlq := &deadLetters{}
		d := NewDispatcher(brokenStore{err: boom}, WithDeduper(dedup), WithDeadLetter(dlq))

		assert.Empty(t, d.Process(ctx, records))
		require.Len(t, dlq.sent, 1)
		assert.Equal(t, keyspace.KindWorkspace, kindOf(dlq.sent[0]))
		assert.ErrorIs(t, dlq.causes[0], boom)
		// a reivindicação é liberada para permitir o reprocessamento
		assert.Contains(t, dedup.released, dlq.sent[0].EventID)
	})

	t.Run("DLQ Indisponível Devolve o Registro", func(t *testing.T) {
		d := NewDispatcher(brokenStore{err: boom}, WithDeadLetter(&deadLetters{err: errors.New("sqs down")}))
		failed := d.Process(ctx, records)
		require.Len(t, failed, 1)
		assert.Equal(t, keyspace.KindWorkspace, kindOf(failed[0]))
	})

	t.Run("Sem DLQ", func(t *testing.T) {
		d := NewDispatcher(brokenStore{err: boom})
		assert.Len(t, d.Process(ctx, records), 1)
	})

	t.Run("Tipos Sem Efeito", func(t *testing.T) {
		d := NewDispatcher(brokenStore{err: boom})
		for _, rec := range records {
			if kindOf(rec) == keyspace.KindUser {
				assert.NoError(t, d.ProcessRecord(ctx, rec))
			}
		}
	})
}

// flakyCounters falha o ajuste de contador no usuário enquanto failing for true.
type flakyCounters struct {
	*repository.Repository
	failing bool
}

func (f *flakyCounters) AdjustCounter(ctx context.Context, kind keyspace.Kind, ref keyspace.Ref, counter string, delta int64) (bool, error) {
	if f.failing && kind == keyspace.KindUser {
		return false, errors.New("throttled")
	}
	return f.Repository.AdjustCounter(ctx, kind, ref, counter, delta)
}

// removeWorkspace monta w1 com dois membros e devolve o REMOVE do workspace.
func (e *env) removeWorkspace(t *testing.T) dyndb.StreamRecord {
	t.Helper()
	ctx := context.Background()
	e.seed(t)
	wm, err := models.NewWorkspaceMember("u1", "w1", models.Profile{UserID: "u3", FirstName: "Caio", Email: "caio@example.com"}, models.RoleViewer, "u1", now)
	require.NoError(t, err)
	require.NoError(t, e.repo.AddWorkspaceMember(ctx, wm))
	e.dispatcher().Settle(ctx, e.table)
	require.Equal(t, int64(1), e.org(t, "u1").WorkspaceCount)

	require.NoError(t, e.repo.DeleteWorkspace(ctx, "u1", "w1"))
	records := e.table.Drain()
	require.Len(t, records, 1)
	return records[0]
}

func TestDispatcher_RetryAfterPartialCascade(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name  string
		dedup bool
	}{
		{name: "Sem Deduplicação"},
		{name: "Com Deduplicação", dedup: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			rec := e.removeWorkspace(t)

			// uma página de um item por listagem: a cascata para no meio
			e.table.PageSize = 1
			var opts []Option
			if tc.dedup {
				opts = append(opts, WithDeduper(newMemDeduper()))
			}
			d := NewDispatcher(repository.New(e.table, dyndb.WithMaxPages(1)), opts...)

			err := d.ProcessRecord(ctx, rec)
			assert.ErrorIs(t, err, dyndb.ErrTruncated)
			assert.Equal(t, int64(1), e.org(t, "u1").WorkspaceCount)

			for i := 0; i < 5; i++ {
				if err = d.ProcessRecord(ctx, rec); err == nil {
					break
				}
			}
			require.NoError(t, err)
			assert.Zero(t, e.org(t, "u1").WorkspaceCount)
			assert.Zero(t, e.user(t, "u1").WorkspaceCount)

			// reentrega depois do sucesso
			if tc.dedup {
				require.NoError(t, d.ProcessRecord(ctx, rec))
				assert.Zero(t, e.org(t, "u1").WorkspaceCount)
			}
		})
	}

	t.Run("Ajuste Parcial Não Se Repete", func(t *testing.T) {
		e := newEnv()
		rec := e.removeWorkspace(t)

		store := &flakyCounters{Repository: e.repo, failing: true}
		d := NewDispatcher(store, WithDeduper(newMemDeduper()))

		assert.Error(t, d.ProcessRecord(ctx, rec))
		assert.Zero(t, e.org(t, "u1").WorkspaceCount)
		assert.Equal(t, int64(1), e.user(t, "u1").WorkspaceCount)

		store.failing = false
		require.NoError(t, d.ProcessRecord(ctx, rec))
		assert.Zero(t, e.org(t, "u1").WorkspaceCount)
		assert.Zero(t, e.user(t, "u1").WorkspaceCount)
	})
}

func TestDispatcher_HandleEvent(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.account(t, "u1", "Ana", "w1")

	var ev events.DynamoDBEvent
	for i, rec := range e.table.Drain() {
		r, err := ToEvent(rec)
		require.NoError(t, err)
		r.Change.SequenceNumber = string(rune('a' + i))
		ev.Records = append(ev.Records, r)
	}
	bogus := events.DynamoDBEventRecord{EventID: "x", EventName: "TRUNCATE"}
	bogus.Change.SequenceNumber = "bogus"
	ev.Records = append(ev.Records, bogus)

	resp, err := e.dispatcher().HandleEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, []events.DynamoDBBatchItemFailure{{ItemIdentifier: "bogus"}}, resp.BatchItemFailures)
	assert.Equal(t, int64(1), e.org(t, "u1").WorkspaceCount)

	t.Run("Falha Volta Como BatchItemFailure", func(t *testing.T) {
		d := NewDispatcher(brokenStore{err: errors.New("throttled")})
		resp, err := d.HandleEvent(ctx, events.DynamoDBEvent{Records: ev.Records[:len(ev.Records)-1]})
		require.NoError(t, err)

		var ids []string
		for _, f := range resp.BatchItemFailures {
			ids = append(ids, f.ItemIdentifier)
		}
		// só o workspace gera efeito e, portanto, falha
		for i, r := range ev.Records[:len(ev.Records)-1] {
			rec, err := FromEvent(r)
			require.NoError(t, err)
			if kindOf(rec) == keyspace.KindWorkspace {
				assert.Equal(t, []string{string(rune('a' + i))}, ids)
			}
		}
	})
}

func TestStream_RoundTrip(t *testing.T) {
	rec := dyndb.StreamRecord{
		EventID:   "evt-1",
		EventName: dyndb.EventModify,
		Keys: dyndb.Item{
			"pk": &types.AttributeValueMemberS{Value: "FORM#f1"},
			"sk": &types.AttributeValueMemberS{Value: "FIELD#1"},
		},
		OldImage: dyndb.Item{
			"required": &types.AttributeValueMemberBOOL{Value: false},
		},
		NewImage: dyndb.Item{
			"required": &types.AttributeValueMemberBOOL{Value: true},
			"max":      &types.AttributeValueMemberN{Value: "10"},
			"hint":     &types.AttributeValueMemberNULL{Value: true},
			"raw":      &types.AttributeValueMemberB{Value: []byte{1, 2, 3}},
			"tags":     &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
			"weights":  &types.AttributeValueMemberNS{Value: []string{"1", "2.5"}},
			"options": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
					"label": &types.AttributeValueMemberS{Value: "Sim"},
				}},
			}},
		},
	}

	ev, err := ToEvent(rec)
	require.NoError(t, err)

	// o formato da DLQ é o JSON do evento
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded events.DynamoDBEventRecord
	require.NoError(t, json.Unmarshal(body, &decoded))

	back, err := FromEvent(decoded)
	require.NoError(t, err)
	assert.Equal(t, rec, back)

	t.Run("Remoção Sem Imagem Nova", func(t *testing.T) {
		ev, err := ToEvent(dyndb.StreamRecord{EventID: "e", EventName: dyndb.EventRemove, Keys: rec.Keys, OldImage: rec.OldImage})
		require.NoError(t, err)
		back, err := FromEvent(ev)
		require.NoError(t, err)
		assert.Nil(t, back.NewImage)
	})

	t.Run("Evento Desconhecido", func(t *testing.T) {
		_, err := FromEvent(events.DynamoDBEventRecord{EventName: "TRUNCATE"})
		assert.Error(t, err)
	})
}

func TestRedisDeduper(t *testing.T) {
	ctx := context.Background()
	client := &fakeRedis{keys: make(map[string]time.Duration)}
	d := NewRedisDeduper(client, time.Hour)

	ok, err := d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, client.keys["form-builder:stream:evt-1"])

	ok, err = d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Release(ctx, "evt-1"))
	ok, err = d.Claim(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)

	client.err = errors.New("connection refused")
	_, err = d.Claim(ctx, "evt-2")
	assert.ErrorContains(t, err, "connection refused")
}

func TestSQSDeadLetter_Send(t *testing.T) {
	ctx := context.Background()
	client := &MockSQS{}
	dlq := NewSQSDeadLetter(client, "https://sqs.local/dlq")

	rec := dyndb.StreamRecord{
		EventID:   "evt-1",
		EventName: dyndb.EventRemove,
		Keys:      dyndb.Item{"pk": &types.AttributeValueMemberS{Value: "ORG#u1"}},
	}
	require.NoError(t, dlq.Send(ctx, rec, errors.New("throttled")))
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, "https://sqs.local/dlq", aws.ToString(msg.QueueUrl))
	assert.Equal(t, "throttled", aws.ToString(msg.MessageAttributes["error"].StringValue))

	var ev events.DynamoDBEventRecord
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(msg.MessageBody)), &ev))
	assert.Equal(t, "evt-1", ev.EventID)
	assert.Equal(t, "REMOVE", ev.EventName)

	client.sendErr = errors.New("access denied")
	assert.ErrorContains(t, dlq.Send(ctx, rec, nil), "access denied")
}

func TestRedriver_RunOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.account(t, "u1", "Ana", "w1")

	client := &MockSQS{}
	dlq := NewSQSDeadLetter(client, "dlq")
	for _, rec := range e.table.Drain() {
		require.NoError(t, dlq.Send(ctx, rec, errors.New("throttled")))
	}
	for i, in := range client.sent {
		client.inbox = append(client.inbox, sqstypes.Message{
			MessageId:     aws.String("m" + string(rune('0'+i))),
			ReceiptHandle: aws.String("rh" + string(rune('0'+i))),
			Body:          in.MessageBody,
		})
	}
	client.inbox = append(client.inbox, sqstypes.Message{
		MessageId:     aws.String("garbage"),
		ReceiptHandle: aws.String("rh-garbage"),
		Body:          aws.String("not json"),
	})
	total := len(client.inbox)

	r := NewRedriver(client, "dlq", e.dispatcher())
	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, n)

	assert.Len(t, client.deleted, total-1)
	assert.NotContains(t, client.deleted, "rh-garbage")
	assert.Equal(t, int64(1), e.org(t, "u1").WorkspaceCount)

	t.Run("Drain Para Com a Fila Vazia", func(t *testing.T) {
		r.Start(ctx, true)
		assert.Equal(t, 2, client.received)
	})

	t.Run("Sem Fila", func(t *testing.T) {
		NewRedriver(client, "", e.dispatcher()).Start(ctx, false)
		assert.Equal(t, 2, client.received)
	})
}

func TestRedriver_StopsDuringRetryDelay(t *testing.T) {
	client := &MockSQS{recvErr: errors.New("sqs down")}
	r := NewRedriver(client, "https://sqs.us-east-1.amazonaws.com/123/dlq", newEnv().dispatcher())
	r.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx, false)
		close(done)
	}()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.received > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start não respeitou o cancelamento durante a espera")
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 1, client.received)
}

func TestDispatcher_Pump(t *testing.T) {
	e := newEnv()
	d := e.dispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Pump(ctx, e.table, 5*time.Millisecond)
		close(done)
	}()

	e.account(t, "u1", "Ana", "w1")
	assert.Eventually(t, func() bool {
		o, err := e.repo.GetOrganization(context.Background(), "u1")
		return err == nil && o.WorkspaceCount == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
