package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.tatikoma.dev/corpix/strand/service"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalAppendTail(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	id, err := j.Append(ctx, Record{
		Service:   "presence",
		Operation: "refresh",
		Outcome:   OutcomeSucceeded,
		Result:    "42",
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = j.Append(ctx, Record{
		Service:   "presence",
		Operation: "subscribe",
		Outcome:   OutcomeFailed,
		Error:     "boom",
	})
	require.NoError(t, err)

	rs, err := j.Tail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rs, 2)

	// newest first
	assert.Equal(t, "subscribe", rs[0].Operation)
	assert.Equal(t, OutcomeFailed, rs[0].Outcome)
	assert.Equal(t, "boom", rs[0].Error)
	assert.Equal(t, "refresh", rs[1].Operation)
	assert.Equal(t, OutcomeSucceeded, rs[1].Outcome)
	assert.False(t, rs[0].At.IsZero())
}

func TestJournalTailLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for range 5 {
		_, err := j.Append(ctx, Record{
			Service:   "s",
			Operation: "op",
			Outcome:   OutcomeSucceeded,
		})
		require.NoError(t, err)
	}

	rs, err := j.Tail(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, rs, 3)
}

func TestJournalHooksSkipCanceled(t *testing.T) {
	j := openTestJournal(t)

	svc := service.New(nil,
		service.WithName("tracker"),
		service.WithHooks(Hooks{Journal: j, Service: "tracker"}),
	)

	op := svc.Spawn(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, service.SpawnName("never-completes"))
	require.NoError(t, svc.Close())

	_, err := op.Wait(context.Background())
	require.Error(t, err)
	require.True(t, op.Canceled())

	time.Sleep(50 * time.Millisecond)
	rs, err := j.Tail(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rs, "cancellations must leave no record")
}

func TestJournalHooks(t *testing.T) {
	j := openTestJournal(t)

	svc := service.New(nil,
		service.WithName("tracker"),
		service.WithHooks(Hooks{Journal: j, Service: "tracker"}),
	)
	defer func() { _ = svc.Close() }()

	okOp := svc.Spawn(func(ctx context.Context) (any, error) {
		return 42, nil
	}, service.SpawnName("ok"))
	failOp := svc.Spawn(func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	}, service.SpawnName("fail"))

	_, _ = okOp.Wait(context.Background())
	_, _ = failOp.Wait(context.Background())

	// hooks run after the handles settle, give them a moment
	var rs []Record
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		rs, err = j.Tail(context.Background(), 10)
		require.NoError(t, err)
		if len(rs) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, rs, 2)

	byOp := map[string]Record{}
	for _, r := range rs {
		byOp[r.Operation] = r
	}
	assert.Equal(t, OutcomeSucceeded, byOp["ok"].Outcome)
	assert.Contains(t, byOp["ok"].Result, "42")
	assert.Equal(t, OutcomeFailed, byOp["fail"].Outcome)
	assert.Equal(t, "boom", byOp["fail"].Error)
}
