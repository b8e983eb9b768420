package game

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// MEMBERSHIP & LOBBY HANDLERS (actor-loop only)
// =============================================================================

// admit delivers room_joined to the new connection itself, inside the loop.
// That way the snapshot is always the first server frame on the socket: no
// broadcast from a later command can overtake it.
func (a *Actor) admit(r *internal.Room, id internal.Identity, conn *websocket.Conn, connID string, join internal.JoinData) (*internal.Player, error) {
	// Reconnect path: the verified user id is stable across connections, so a
	// known id resumes its slot with role, readiness and host flag intact.
	if p, ok := r.Players[id.UserID]; ok {
		if p.IsConnected && p.Conn != nil {
			// The new connection supersedes the stale one.
			a.log.Info("superseding stale connection", zap.String("player", p.Id))
			_ = p.Conn.Close()
		}
		p.Mu.Lock()
		p.Conn = conn
		p.Mu.Unlock()
		p.ConnId = connID
		p.IsConnected = true
		p.DisconnectedAt = time.Time{}
		if p.Status == internal.PlayerDisconnected {
			p.Status = internal.PlayerActive
		}
		a.cancelGraceTimer(p.Id)
		a.cancelEmptyTimer()

		a.log.Info("player reconnected", zap.String("player", p.Id))
		a.sendTo(p, internal.MsgRoomJoined, buildSnapshot(r))
		a.broadcastSnapshot(r, internal.MsgRoomUpdated)
		return p, nil
	}

	if r.Status != internal.StatusWaiting {
		return nil, internal.ErrAlreadyPlaying
	}
	if r.MemberCount() >= r.MaxPlayers {
		return nil, internal.ErrRoomFull
	}
	if r.Visibility == internal.VisibilityPrivate && join.AccessSecret != r.AccessSecret {
		return nil, internal.ErrInvalidAccess
	}

	r.JoinSeq++
	p := &internal.Player{
		Id:          id.UserID,
		Name:        id.DisplayName,
		Conn:        conn,
		ConnId:      connID,
		JoinOrder:   r.JoinSeq,
		IsConnected: true,
		JoinedAt:    time.Now(),
	}
	// The first admitted member of a fresh room becomes host and fixes the
	// room's title and visibility.
	if r.MemberCount() == 0 {
		p.IsHost = true
		if join.Title != "" {
			r.Title = join.Title
		}
		if join.AccessSecret != "" {
			r.Visibility = internal.VisibilityPrivate
			r.AccessSecret = join.AccessSecret
		}
	}
	r.Players[p.Id] = p
	a.cancelEmptyTimer()

	a.log.Info("player admitted",
		zap.String("player", p.Id),
		zap.String("name", p.Name),
		zap.Int("members", r.MemberCount()),
	)
	snapshot := buildSnapshot(r)
	a.sendTo(p, internal.MsgRoomJoined, snapshot)
	a.broadcastExcept(r, internal.MsgRoomUpdated, snapshot, p.Id)
	return p, nil
}

// bindTicket records the session ticket issued for the player's current
// connection. A rebind on reconnect invalidates the previous ticket.
func (a *Actor) bindTicket(r *internal.Room, playerID, ticketID string) {
	p, ok := r.Players[playerID]
	if !ok {
		a.revokeTicket(ticketID)
		return
	}
	if p.TicketID != "" && p.TicketID != ticketID {
		a.revokeTicket(p.TicketID)
	}
	p.TicketID = ticketID
}

// revokeTicket invalidates a departed player's resume ticket. The hook may
// touch the network, so it runs off the loop.
func (a *Actor) revokeTicket(ticketID string) {
	if ticketID == "" || a.cfg.RevokeTicket == nil {
		return
	}
	go a.cfg.RevokeTicket(ticketID)
}

func (a *Actor) toggleReady(r *internal.Room, playerID string) error {
	p, ok := r.Players[playerID]
	if !ok {
		return internal.ErrNotAMember
	}
	return a.setReady(r, playerID, !p.IsReady)
}

func (a *Actor) setReady(r *internal.Room, playerID string, ready bool) error {
	p, ok := r.Players[playerID]
	if !ok {
		return internal.ErrNotAMember
	}
	// Readiness is meaningless once a round runs; silently ignore.
	if r.Status != internal.StatusWaiting {
		return nil
	}
	if p.IsReady == ready {
		return nil
	}
	p.IsReady = ready

	readyCount := r.ReadyOrHostCount()
	a.log.Info("ready toggled",
		zap.String("player", p.Id),
		zap.Bool("ready", ready),
		zap.Int("ready_count", readyCount),
	)
	a.broadcast(r, internal.MsgPlayerReadyChanged, internal.ReadyChangedData{
		PlayerID:   p.Id,
		IsReady:    ready,
		ReadyCount: readyCount,
		Players:    r.Snapshots(),
	})
	return nil
}

func (a *Actor) leave(r *internal.Room, playerID string) {
	p, ok := r.Players[playerID]
	if !ok {
		return
	}
	wasHost := p.IsHost
	delete(r.Players, playerID)
	a.cancelGraceTimer(playerID)
	a.revokeTicket(p.TicketID)
	if p.Conn != nil {
		_ = p.Conn.Close()
	}

	a.log.Info("player left",
		zap.String("player", playerID),
		zap.Int("members", r.MemberCount()),
	)

	if r.MemberCount() == 0 {
		// Hold the room for a grace window so a brief full-party drop can
		// recover, then self-terminate.
		if r.Round != nil {
			a.abortRound(r, "room_empty")
		}
		a.scheduleEmptyTimer(r)
		return
	}

	if wasHost {
		next := r.NextHost()
		if next != nil {
			next.IsHost = true
			a.log.Info("host transferred", zap.String("new_host", next.Id))
			a.broadcast(r, internal.MsgHostTransferred, internal.HostTransferredData{
				NewHostID: next.Id,
				Players:   r.Snapshots(),
			})
		}
	}

	if r.Round != nil {
		switch {
		case p.Id == r.Round.LiarID:
			// No liar, no game.
			a.abortRound(r, "liar_left")
		case r.ActiveCount() < 2:
			a.abortRound(r, "not_enough_players")
		default:
			// Drop the departed player's pending participation.
			delete(r.Round.Votes, playerID)
			if r.Round.Phase == internal.PhaseDiscussion && r.Round.CurrentTurnPlayer() == playerID {
				a.advanceTurn(r, playerID)
			} else if r.Round.Phase == internal.PhaseVoting {
				a.checkVotingComplete(r)
			}
		}
	}

	a.broadcastSnapshot(r, internal.MsgRoomUpdated)
}

func (a *Actor) transferHost(r *internal.Room, requesterID, targetID string) error {
	requester, ok := r.Players[requesterID]
	if !ok || !requester.IsHost {
		return internal.ErrNotHost
	}
	// Host authority is frozen during a round to keep turn logic race-free.
	if r.Round != nil {
		return internal.ErrRoundInProgress
	}
	target, ok := r.Players[targetID]
	if !ok || targetID == requesterID {
		return internal.ErrInvalidTarget
	}

	requester.IsHost = false
	target.IsHost = true
	a.log.Info("host transferred",
		zap.String("from", requesterID),
		zap.String("to", targetID),
	)
	a.broadcast(r, internal.MsgHostTransferred, internal.HostTransferredData{
		NewHostID: target.Id,
		Players:   r.Snapshots(),
	})
	return nil
}

func (a *Actor) disconnect(r *internal.Room, playerID, connID string) {
	p, ok := r.Players[playerID]
	if !ok {
		return
	}
	// A reconnect may already have replaced the connection; the old reader's
	// disconnect must not knock the new one out.
	if p.ConnId != connID {
		return
	}
	p.Mu.Lock()
	p.Conn = nil
	p.Mu.Unlock()
	p.IsConnected = false
	p.DisconnectedAt = time.Now()
	if p.Status == internal.PlayerActive {
		p.Status = internal.PlayerDisconnected
	}

	a.log.Info("player disconnected, grace timer started",
		zap.String("player", playerID),
		zap.Duration("grace", a.cfg.ReconnectGrace),
	)
	a.scheduleGraceTimer(r, playerID, p.DisconnectedAt)

	if r.Round != nil && r.Round.Phase == internal.PhaseVoting {
		// Voting may now be complete without them.
		a.checkVotingComplete(r)
	}
	a.broadcastSnapshot(r, internal.MsgRoomUpdated)
}
