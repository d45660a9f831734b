package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool() *Pool {
	p := NewPool(nil)
	p.backoff = func(int) time.Duration { return 0 }
	return p
}

func rawJob(t *testing.T, jobType string, payload any) string {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	b, err := json.Marshal(Job{Type: jobType, Payload: data})
	require.NoError(t, err)
	return string(b)
}

func TestProcess_SucceedsAfterRetry(t *testing.T) {
	p := newTestPool()
	calls := 0
	p.Handle(QueueAudit, func(context.Context, json.RawMessage) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	entry := p.process(context.Background(), QueueAudit, rawJob(t, "audit", map[string]string{"a": "b"}))
	assert.Nil(t, entry)
	assert.Equal(t, 2, calls)
}

func TestProcess_DeadLettersAfterMaxAttempts(t *testing.T) {
	p := newTestPool()
	calls := 0
	p.Handle(QueueAudit, func(context.Context, json.RawMessage) error {
		calls++
		return errors.New("db down")
	})

	entry := p.process(context.Background(), QueueAudit, rawJob(t, "audit", 1))
	require.NotNil(t, entry)
	assert.Equal(t, DefaultMaxAttempts, calls)
	assert.Equal(t, DefaultMaxAttempts, entry.Attempts)
	assert.Equal(t, "db down", entry.Reason)
	assert.Equal(t, QueueAudit, entry.OriginalQueue)
	assert.Equal(t, "audit", entry.JobType)
	assert.JSONEq(t, "1", string(entry.Payload))
}

func TestProcess_MalformedAndUnhandled(t *testing.T) {
	p := newTestPool()

	entry := p.process(context.Background(), QueueAudit, "{not json")
	require.NotNil(t, entry)
	assert.Contains(t, entry.Reason, "malformed")
	assert.Empty(t, entry.JobType)

	entry = p.process(context.Background(), "jobs:unknown", rawJob(t, "x", 1))
	require.NotNil(t, entry)
	assert.Equal(t, "no handler for queue", entry.Reason)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, time.Second, exponentialBackoff(1))
	assert.Equal(t, 2*time.Second, exponentialBackoff(2))
	assert.Equal(t, 4*time.Second, exponentialBackoff(3))
}

// ── Audit worker ─────────────────────────────────────────────────────────────

type stubAuditRepo struct {
	mu   sync.Mutex
	rows []model.AuditLog
	err  error
}

func (r *stubAuditRepo) Create(_ context.Context, e *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	e.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, *e)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, limit int) ([]model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rows) > limit {
		return r.rows[:limit], nil
	}
	return r.rows, nil
}

func (r *stubAuditRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func TestAuditWorker_PersistsEntry(t *testing.T) {
	repo := &stubAuditRepo{}
	w := NewAuditWorker(repo)
	actor := uint(4)
	target := "12"
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	payload, err := json.Marshal(service.AuditEntry{
		ActorID:  &actor,
		Action:   service.ActionStationCreated,
		TargetID: &target,
		Details:  map[string]any{"brand": "SOCAR"},
		IP:       "10.0.0.1",
		At:       at,
	})
	require.NoError(t, err)

	require.NoError(t, w.Process(context.Background(), payload))
	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, service.ActionStationCreated, row.Action)
	assert.Equal(t, &actor, row.ActorID)
	assert.Equal(t, "12", *row.TargetID)
	assert.Equal(t, "10.0.0.1", *row.IPAddress)
	assert.JSONEq(t, `{"brand":"SOCAR"}`, string(row.Details))
	assert.True(t, at.Equal(row.CreatedAt))
}

func TestAuditWorker_Errors(t *testing.T) {
	w := NewAuditWorker(&stubAuditRepo{err: errors.New("insert failed")})

	assert.Error(t, w.Process(context.Background(), json.RawMessage(`"nope"`)))
	assert.EqualError(t, w.Process(context.Background(), json.RawMessage(`{"action":"x"}`)), "insert failed")
}
