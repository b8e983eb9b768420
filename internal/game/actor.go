package game

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// ROOM ACTOR
// =============================================================================

// command is one unit of work for the actor loop. Every mutation of room
// state travels through the command channel, giving each room a strict total
// order over its events.
type command struct {
	name string
	fn   func(r *internal.Room)
}

// Actor owns one room. A single goroutine drains cmds and is the only code
// that ever touches the Room struct, so room state needs no locks.
type Actor struct {
	code string
	reg  *Registry
	cfg  Config
	log  *zap.Logger

	cmds chan command
	done chan struct{}
	once sync.Once

	// room and the timer fields below are loop-owned.
	room        *internal.Room
	phaseTimer  *time.Timer
	turnTimer   *time.Timer
	emptyTimer  *time.Timer
	graceTimers map[string]*time.Timer

	// info is the last published projection, readable by anyone for
	// display-only queries.
	info atomic.Pointer[internal.RoomInfo]
}

func newActor(code string, reg *Registry) *Actor {
	a := &Actor{
		code: code,
		reg:  reg,
		cfg:  reg.cfg,
		log:  reg.log.With(zap.String("room", code)),
		cmds: make(chan command, reg.cfg.QueueSize),
		done: make(chan struct{}),
		room: &internal.Room{
			Code:       code,
			Visibility: internal.VisibilityPublic,
			Status:     internal.StatusWaiting,
			MinPlayers: reg.cfg.MinPlayers,
			MaxPlayers: reg.cfg.MaxPlayers,
			Players:    make(map[string]*internal.Player),
			CreatedAt:  time.Now(),
		},
		graceTimers: make(map[string]*time.Timer),
	}
	info := a.room.Info()
	a.info.Store(&info)
	return a
}

func (a *Actor) Code() string { return a.code }

// Info returns the last published room projection. Eventual consistency only;
// never use it for control decisions.
func (a *Actor) Info() internal.RoomInfo {
	return *a.info.Load()
}

func (a *Actor) run() {
	defer func() {
		if rec := recover(); rec != nil {
			a.log.Error("room actor crashed",
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			a.crash()
		}
	}()

	for {
		select {
		case cmd := <-a.cmds:
			cmd.fn(a.room)
			info := a.room.Info()
			a.info.Store(&info)
		case <-a.done:
			return
		}
	}
}

// do enqueues a command, waiting at most EnqueueTimeout when the queue is
// saturated. The caller gets a retryable room_busy rather than an unbounded
// block.
func (a *Actor) do(name string, fn func(r *internal.Room)) error {
	cmd := command{name: name, fn: fn}
	select {
	case a.cmds <- cmd:
		return nil
	case <-a.done:
		return internal.ErrRoomNotFound
	default:
	}

	t := time.NewTimer(a.cfg.EnqueueTimeout)
	defer t.Stop()
	select {
	case a.cmds <- cmd:
		return nil
	case <-a.done:
		return internal.ErrRoomNotFound
	case <-t.C:
		a.log.Warn("room queue saturated", zap.String("command", name))
		return internal.ErrRoomBusy
	}
}

// call runs fn inside the loop and waits for its result.
func call[T any](a *Actor, name string, fn func(r *internal.Room) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	var zero T
	if err := a.do(name, func(r *internal.Room) {
		v, err := fn(r)
		ch <- result{v, err}
	}); err != nil {
		return zero, err
	}
	select {
	case res := <-ch:
		return res.v, res.err
	case <-a.done:
		return zero, internal.ErrRoomNotFound
	}
}

// -----------------------------------------------------------------------------
// Public API: every method funnels into the actor loop.
// -----------------------------------------------------------------------------

// Admit adds or re-associates a player. The room_joined snapshot is delivered
// to the new connection from inside the loop, before any later broadcast can
// reach it. The returned player is the caller's write handle: all further
// writes to the connection must go through its SafeWriteJSON so they
// serialize with the actor's own broadcasts.
func (a *Actor) Admit(id internal.Identity, conn *websocket.Conn, connID string, join internal.JoinData) (*internal.Player, error) {
	return call(a, "admit", func(r *internal.Room) (*internal.Player, error) {
		return a.admit(r, id, conn, connID, join)
	})
}

// BindTicket associates a session ticket with the player so the actor can
// revoke it when the player permanently departs.
func (a *Actor) BindTicket(playerID, ticketID string) {
	_ = a.do("bind_ticket", func(r *internal.Room) {
		a.bindTicket(r, playerID, ticketID)
	})
}

// ToggleReady flips the player's readiness. A no-op while a round runs.
func (a *Actor) ToggleReady(playerID string) error {
	_, err := call(a, "toggle_ready", func(r *internal.Room) (struct{}, error) {
		return struct{}{}, a.toggleReady(r, playerID)
	})
	return err
}

// SetReady sets the player's readiness to an explicit value.
func (a *Actor) SetReady(playerID string, ready bool) error {
	_, err := call(a, "set_ready", func(r *internal.Room) (struct{}, error) {
		return struct{}{}, a.setReady(r, playerID, ready)
	})
	return err
}

// StartRound begins a round; host only.
func (a *Actor) StartRound(requesterID string) error {
	_, err := call(a, "start_round", func(r *internal.Room) (struct{}, error) {
		return struct{}{}, a.startRound(r, requesterID)
	})
	return err
}

// Leave removes the player from the room.
func (a *Actor) Leave(playerID string) error {
	_, err := call(a, "leave", func(r *internal.Room) (struct{}, error) {
		a.leave(r, playerID)
		return struct{}{}, nil
	})
	return err
}

// TransferHost hands host authority to another member; waiting phase only.
func (a *Actor) TransferHost(requesterID, targetID string) error {
	_, err := call(a, "transfer_host", func(r *internal.Room) (struct{}, error) {
		return struct{}{}, a.transferHost(r, requesterID, targetID)
	})
	return err
}

// SubmitSpeech appends the current speaker's line and advances the turn.
func (a *Actor) SubmitSpeech(playerID, text string) error {
	_, err := call(a, "submit_speech", func(r *internal.Room) (struct{}, error) {
		return struct{}{}, a.submitSpeech(r, playerID, text)
	})
	return err
}

// SubmitVote records one vote during the voting phase.
func (a *Actor) SubmitVote(voterID, targetID string) error {
	_, err := call(a, "submit_vote", func(r *internal.Room) (struct{}, error) {
		return struct{}{}, a.submitVote(r, voterID, targetID)
	})
	return err
}

// SubmitGuess records the liar's single keyword attempt.
func (a *Actor) SubmitGuess(playerID, text string) error {
	_, err := call(a, "submit_guess", func(r *internal.Room) (struct{}, error) {
		return struct{}{}, a.submitGuess(r, playerID, text)
	})
	return err
}

// Disconnect marks the player's transport as dropped and starts the reconnect
// grace timer. Stale connection ids are ignored.
func (a *Actor) Disconnect(playerID, connID string) {
	_ = a.do("disconnect", func(r *internal.Room) {
		a.disconnect(r, playerID, connID)
	})
}

// Terminate shuts the actor down, notifying members with the given reason.
func (a *Actor) Terminate(reason string) {
	_ = a.do("terminate", func(r *internal.Room) {
		a.terminate(r, reason)
	})
}

// -----------------------------------------------------------------------------
// Teardown paths. terminate runs inside the loop; crash runs from the
// recovered run goroutine after the loop is already dead. In both cases no
// other code can touch room state concurrently.
// -----------------------------------------------------------------------------

func (a *Actor) terminate(r *internal.Room, reason string) {
	a.stopAllTimers()
	r.Status = internal.StatusFinished
	a.broadcast(r, internal.MsgRoomDeleted, internal.RoomDeletedData{Reason: reason})
	for _, p := range r.Players {
		a.revokeTicket(p.TicketID)
		if p.Conn != nil {
			_ = p.Conn.Close()
		}
	}
	r.Players = make(map[string]*internal.Player)
	a.reg.Remove(a.code, a)
	if a.reg.sink != nil {
		a.reg.sink.RoomClosed(a.code, reason, time.Now())
	}
	a.close()
	a.log.Info("room terminated", zap.String("reason", reason))
}

func (a *Actor) crash() {
	a.reg.Remove(a.code, a)
	a.stopAllTimers()
	a.broadcast(a.room, internal.MsgRoomDeleted, internal.RoomDeletedData{Reason: "internal_error"})
	for _, p := range a.room.Players {
		a.revokeTicket(p.TicketID)
		if p.Conn != nil {
			_ = p.Conn.Close()
		}
	}
	if a.reg.sink != nil {
		a.reg.sink.RoomClosed(a.code, "internal_error", time.Now())
	}
	a.close()
}

func (a *Actor) close() {
	a.once.Do(func() { close(a.done) })
}

func (a *Actor) stopAllTimers() {
	a.stopPhaseTimer()
	a.stopTurnTimer()
	if a.emptyTimer != nil {
		a.emptyTimer.Stop()
		a.emptyTimer = nil
	}
	for id, t := range a.graceTimers {
		t.Stop()
		delete(a.graceTimers, id)
	}
}
