package game

import (
	"time"

	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================
//
// A timer fire is just another command injected into the room's serialized
// queue, so it can never race with a concurrently arriving player action.
// Phase and turn timers capture the room epoch at schedule time; by the time
// the fire reaches the loop the round may have moved on, in which case the
// fire is a provable no-op.

// schedulePhaseTimer arms the single per-phase deadline timer.
func (a *Actor) schedulePhaseTimer(r *internal.Room, d time.Duration, name string, fn func(r *internal.Room)) {
	a.stopPhaseTimer()
	epoch := r.Epoch
	a.phaseTimer = time.AfterFunc(d, func() {
		_ = a.do(name, func(r *internal.Room) {
			if r.Epoch != epoch {
				a.log.Debug("stale phase timer ignored",
					zap.String("timer", name),
					zap.Uint64("fired_epoch", epoch),
					zap.Uint64("room_epoch", r.Epoch),
				)
				return
			}
			fn(r)
		})
	})
}

// scheduleTurnTimer arms the per-turn sub-timeout within discussion.
func (a *Actor) scheduleTurnTimer(r *internal.Room, d time.Duration, fn func(r *internal.Room)) {
	a.stopTurnTimer()
	epoch := r.Epoch
	turn := 0
	if r.Round != nil {
		turn = r.Round.TurnIndex
	}
	a.turnTimer = time.AfterFunc(d, func() {
		_ = a.do("turn_timeout", func(r *internal.Room) {
			if r.Epoch != epoch {
				return
			}
			// The turn may have advanced within the same phase.
			if r.Round == nil || r.Round.TurnIndex != turn {
				return
			}
			fn(r)
		})
	})
}

// scheduleGraceTimer arms the per-player reconnect grace timer. Guarded by
// the disconnect timestamp rather than the epoch: a phase change must not
// invalidate it.
func (a *Actor) scheduleGraceTimer(r *internal.Room, playerID string, droppedAt time.Time) {
	if t, ok := a.graceTimers[playerID]; ok {
		t.Stop()
	}
	a.graceTimers[playerID] = time.AfterFunc(a.cfg.ReconnectGrace, func() {
		_ = a.do("grace_expired", func(r *internal.Room) {
			p, ok := r.Players[playerID]
			if !ok || p.IsConnected || !p.DisconnectedAt.Equal(droppedAt) {
				return
			}
			a.log.Info("reconnect grace expired", zap.String("player", playerID))
			delete(a.graceTimers, playerID)
			a.leave(r, playerID)
		})
	})
}

func (a *Actor) cancelGraceTimer(playerID string) {
	if t, ok := a.graceTimers[playerID]; ok {
		t.Stop()
		delete(a.graceTimers, playerID)
	}
}

// scheduleEmptyTimer arms self-termination for an empty room; cancelled when
// anyone is admitted within the grace window.
func (a *Actor) scheduleEmptyTimer(r *internal.Room) {
	if a.emptyTimer != nil {
		a.emptyTimer.Stop()
	}
	a.emptyTimer = time.AfterFunc(a.cfg.EmptyRoomGrace, func() {
		_ = a.do("empty_expired", func(r *internal.Room) {
			if r.MemberCount() > 0 {
				return
			}
			a.terminate(r, "room_empty")
		})
	})
}

func (a *Actor) cancelEmptyTimer() {
	if a.emptyTimer != nil {
		a.emptyTimer.Stop()
		a.emptyTimer = nil
	}
}

func (a *Actor) stopPhaseTimer() {
	if a.phaseTimer != nil {
		a.phaseTimer.Stop()
		a.phaseTimer = nil
	}
}

func (a *Actor) stopTurnTimer() {
	if a.turnTimer != nil {
		a.turnTimer.Stop()
		a.turnTimer = nil
	}
}
