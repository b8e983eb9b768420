package game

import (
	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// BROADCASTING & MESSAGING
// =============================================================================
//
// All broadcasts happen from inside the actor loop, after the state change
// they describe, so every member observes the same ordered stream. Writes go
// through the per-connection write mutex; a failed write is left to the read
// loop's disconnect path to clean up.

func (a *Actor) broadcast(r *internal.Room, msgType string, data any) {
	a.broadcastExcept(r, msgType, data, "")
}

func (a *Actor) broadcastExcept(r *internal.Room, msgType string, data any, exceptID string) {
	msg := internal.Message[any]{Type: msgType, Data: data}
	sent := 0
	for _, p := range r.Players {
		if !p.IsConnected || p.Id == exceptID {
			continue
		}
		if err := p.SafeWriteJSON(msg); err != nil {
			a.log.Warn("broadcast write failed",
				zap.String("type", msgType),
				zap.String("player", p.Id),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	a.log.Debug("broadcast", zap.String("type", msgType), zap.Int("sent", sent))
}

// sendTo delivers a private message to one member.
func (a *Actor) sendTo(p *internal.Player, msgType string, data any) {
	if !p.IsConnected {
		return
	}
	if err := p.SafeWriteJSON(internal.Message[any]{Type: msgType, Data: data}); err != nil {
		a.log.Warn("private write failed",
			zap.String("type", msgType),
			zap.String("player", p.Id),
			zap.Error(err),
		)
	}
}

// buildSnapshot assembles the full-state projection broadcast on join, host
// transfer, round start and reset.
func buildSnapshot(r *internal.Room) *internal.RoomSnapshot {
	snap := &internal.RoomSnapshot{
		Room:    r.Info(),
		Players: r.Snapshots(),
		Phase:   internal.PhaseWaiting,
	}
	if r.Round != nil {
		snap.Phase = r.Round.Phase
		snap.TurnOrder = append([]string(nil), r.Round.TurnOrder...)
		snap.CurrentTurn = r.Round.CurrentTurnPlayer()
		snap.Deadline = r.Round.Deadline
		snap.Category = r.Round.Category
		snap.Speeches = append([]internal.SpeechEntry(nil), r.Round.Speeches...)
	}
	return snap
}

// broadcastSnapshot pushes the full state to every connected member.
func (a *Actor) broadcastSnapshot(r *internal.Room, msgType string) {
	a.broadcast(r, msgType, buildSnapshot(r))
}
