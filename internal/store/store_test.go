package store

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
)

func startPostgres(t *testing.T) *Recorder {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("liargame"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := NewPool(connStr)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	rec := NewRecorder(pool, zap.NewNop())
	t.Cleanup(rec.Close)
	if err := rec.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return rec
}

func TestRecorderPersistsLifecycle(t *testing.T) {
	rec := startPostgres(t)
	ctx := context.Background()

	createdAt := time.Now().UTC().Truncate(time.Millisecond)
	rec.RoomCreated("ABC123", "friday night", createdAt)
	rec.RoundResult("ABC123", internal.RoundOutcome{
		Winner:       internal.WinnerRegulars,
		Reason:       "guess_wrong",
		LiarID:       "u-2",
		EliminatedID: "u-2",
		Keyword:      "penguin",
	}, createdAt, createdAt.Add(3*time.Minute))
	rec.RoomClosed("ABC123", "room_empty", createdAt.Add(10*time.Minute))

	// Writes are asynchronous; poll until the writer catches up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		var reason *string
		err := rec.pool.QueryRow(ctx,
			`SELECT close_reason FROM rooms WHERE code = $1`, "ABC123",
		).Scan(&reason)
		if err == nil && reason != nil && *reason == "room_empty" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("room row not persisted in time: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	var winner, keyword string
	err := rec.pool.QueryRow(ctx,
		`SELECT winner, keyword FROM match_results WHERE room_code = $1`, "ABC123",
	).Scan(&winner, &keyword)
	if err != nil {
		t.Fatalf("query match result: %v", err)
	}
	if winner != "regulars" || keyword != "penguin" {
		t.Fatalf("unexpected row (%q, %q)", winner, keyword)
	}
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	// No pool needed: nothing drains the queue if we never start writing, so
	// construct the recorder manually around a tiny channel.
	rec := &Recorder{
		log:    zap.NewNop(),
		events: make(chan event, 1),
		done:   make(chan struct{}),
	}

	rec.RoomCreated("ABC123", "", time.Now())
	rec.RoomCreated("DEF456", "", time.Now())

	if len(rec.events) != 1 {
		t.Fatalf("expected overflow dropped, queue len %d", len(rec.events))
	}
}
