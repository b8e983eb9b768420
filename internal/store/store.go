package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// MATCH HISTORY PERSISTENCE
// =============================================================================
//
// Game rooms never wait on the database. Lifecycle events are queued to a
// single writer goroutine; when the queue is full the event is dropped and
// counted, because history is best-effort while gameplay is not.

const (
	defaultTimeout = 3 * time.Second
	queueCapacity  = 256
)

type eventKind int

const (
	evRoomCreated eventKind = iota
	evRoundResult
	evRoomClosed
)

type event struct {
	kind    eventKind
	code    string
	title   string
	reason  string
	outcome internal.RoundOutcome
	started time.Time
	at      time.Time
}

// Recorder is the write-behind sink for room lifecycle events.
type Recorder struct {
	pool   *pgxpool.Pool
	log    *zap.Logger
	events chan event
	done   chan struct{}
}

func NewPool(connStr string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return pgxpool.New(ctx, connStr)
}

func NewRecorder(pool *pgxpool.Pool, logger *zap.Logger) *Recorder {
	r := &Recorder{
		pool:   pool,
		log:    logger,
		events: make(chan event, queueCapacity),
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

// EnsureSchema creates the history tables if missing.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS rooms (
	code         TEXT        NOT NULL,
	title        TEXT        NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	closed_at    TIMESTAMPTZ,
	close_reason TEXT,
	PRIMARY KEY (code, created_at)
);
CREATE TABLE IF NOT EXISTS match_results (
	id            BIGSERIAL PRIMARY KEY,
	room_code     TEXT        NOT NULL,
	winner        TEXT        NOT NULL,
	reason        TEXT        NOT NULL,
	liar_id       TEXT        NOT NULL,
	eliminated_id TEXT,
	keyword       TEXT        NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_results_room ON match_results (room_code, ended_at);`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

// RoomCreated implements game.EventSink.
func (r *Recorder) RoomCreated(code, title string, at time.Time) {
	r.enqueue(event{kind: evRoomCreated, code: code, title: title, at: at})
}

// RoundResult implements game.EventSink.
func (r *Recorder) RoundResult(code string, outcome internal.RoundOutcome, startedAt, endedAt time.Time) {
	r.enqueue(event{kind: evRoundResult, code: code, outcome: outcome, started: startedAt, at: endedAt})
}

// RoomClosed implements game.EventSink.
func (r *Recorder) RoomClosed(code, reason string, at time.Time) {
	r.enqueue(event{kind: evRoomClosed, code: code, reason: reason, at: at})
}

func (r *Recorder) enqueue(e event) {
	select {
	case r.events <- e:
	default:
		r.log.Warn("history queue full, dropping event",
			zap.String("room", e.code),
			zap.Int("kind", int(e.kind)),
		)
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.events:
			r.write(e)
		case <-r.done:
			// Flush whatever is still queued before stopping.
			for {
				select {
				case e := <-r.events:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e event) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var err error
	switch e.kind {
	case evRoomCreated:
		_, err = r.pool.Exec(ctx,
			`INSERT INTO rooms (code, title, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			e.code, e.title, e.at)
	case evRoundResult:
		_, err = r.pool.Exec(ctx,
			`INSERT INTO match_results (room_code, winner, reason, liar_id, eliminated_id, keyword, started_at, ended_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.code, string(e.outcome.Winner), e.outcome.Reason, e.outcome.LiarID,
			e.outcome.EliminatedID, e.outcome.Keyword, e.started, e.at)
	case evRoomClosed:
		_, err = r.pool.Exec(ctx,
			`UPDATE rooms SET closed_at = $1, close_reason = $2
			 WHERE code = $3 AND closed_at IS NULL`,
			e.at, e.reason, e.code)
	}
	if err != nil {
		r.log.Error("failed to persist history event",
			zap.String("room", e.code),
			zap.Error(err),
		)
	}
}

// Close stops the writer after flushing queued events.
func (r *Recorder) Close() {
	close(r.done)
}

// =============================================================================
// RETENTION
// =============================================================================

// StartRetention runs a nightly purge of closed rooms and match results older
// than the retention window. The returned cron is already started.
func StartRetention(pool *pgxpool.Pool, retention time.Duration, logger *zap.Logger) *cron.Cron {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	c := cron.New()

	c.AddFunc("0 3 * * *", func() {
		logger.Info("purging expired match history")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cutoff := time.Now().Add(-retention)
		tag, err := pool.Exec(ctx, `DELETE FROM match_results WHERE ended_at <= $1`, cutoff)
		if err != nil {
			logger.Error("failed to purge match results", zap.Error(err))
		} else {
			logger.Info("match results purged", zap.Int64("rows_deleted", tag.RowsAffected()))
		}

		tag, err = pool.Exec(ctx, `DELETE FROM rooms WHERE closed_at IS NOT NULL AND closed_at <= $1`, cutoff)
		if err != nil {
			logger.Error("failed to purge rooms", zap.Error(err))
		} else {
			logger.Info("rooms purged", zap.Int64("rows_deleted", tag.RowsAffected()))
		}
	})

	c.Start()
	return c
}
