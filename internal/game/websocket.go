package game

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
	"github.com/m16khb/liar-game-sub001/internal/auth"
	"github.com/m16khb/liar-game-sub001/internal/session"
)

// =============================================================================
// CONNECTION BROKER
// =============================================================================

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// joinTimeout bounds how long a fresh socket may sit silent before sending
// its join message.
const joinTimeout = 10 * time.Second

// Broker upgrades HTTP requests to WebSocket connections, authenticates them,
// and pumps their messages into the right room actor. It holds no game state.
type Broker struct {
	reg      *Registry
	authn    auth.Authenticator
	sessions session.Store
	log      *zap.Logger
}

func NewBroker(reg *Registry, authn auth.Authenticator, sessions session.Store, logger *zap.Logger) *Broker {
	return &Broker{reg: reg, authn: authn, sessions: sessions, log: logger}
}

// HandleWebSocket serves GET /ws/{roomCode}. The client is admitted to the
// room only after its first message, which must be a join; everything after
// that is dispatched to the room actor until the socket dies.
func (b *Broker) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomCode := mux.Vars(r)["roomCode"]
	if !internal.ValidRoomCode(roomCode) {
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	}

	identity, resumed, ok := b.identify(r, roomCode)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	connID := uuid.New().String()

	join, ok := b.awaitJoin(conn)
	if !ok {
		_ = conn.Close()
		return
	}

	actor := b.reg.GetOrCreate(roomCode)
	// Admit delivers room_joined itself. From here on the actor also writes to
	// this socket, so every broker write goes through the player's write mutex.
	p, err := actor.Admit(identity, conn, connID, join)
	if err != nil {
		b.rejectAndClose(conn, err)
		return
	}

	b.log.Info("player connected",
		zap.String("room", roomCode),
		zap.String("player", identity.UserID),
		zap.Bool("resumed", resumed),
	)

	b.issueTicket(r, actor, p, roomCode)

	b.readLoop(actor, conn, p, connID)
}

// identify resolves the request to a player identity, preferring a reconnect
// ticket over fresh authentication. A ticket for a different room is ignored
// rather than rejected.
func (b *Broker) identify(r *http.Request, roomCode string) (internal.Identity, bool, bool) {
	if ticketID := r.URL.Query().Get("session"); ticketID != "" && b.sessions != nil {
		if t, ok := b.sessions.Resolve(r.Context(), ticketID); ok && t.RoomCode == roomCode {
			return internal.Identity{UserID: t.UserID, DisplayName: t.Name}, true, true
		}
	}
	identity, err := b.authn.Identify(r)
	if err != nil {
		b.log.Warn("authentication failed", zap.Error(err))
		return internal.Identity{}, false, false
	}
	return identity, false, true
}

// awaitJoin reads messages until the join arrives or the timeout hits.
func (b *Broker) awaitJoin(conn *websocket.Conn) (internal.JoinData, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(joinTimeout))
	defer conn.SetReadDeadline(time.Time{})

	for {
		var msg internal.Message[json.RawMessage]
		if err := conn.ReadJSON(&msg); err != nil {
			return internal.JoinData{}, false
		}
		if msg.Type != internal.MsgJoin {
			b.writeError(conn, internal.ErrWrongPhase)
			continue
		}
		var join internal.JoinData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &join); err != nil {
				b.writeError(conn, internal.ErrInvalidRoomCode)
				return internal.JoinData{}, false
			}
		}
		return join, true
	}
}

// issueTicket stores a reconnect ticket, binds it to the player so the actor
// can revoke it on departure, and hands it to the client.
func (b *Broker) issueTicket(r *http.Request, actor *Actor, p *internal.Player, roomCode string) {
	if b.sessions == nil {
		return
	}
	ticketID, err := b.sessions.Issue(r.Context(), session.Ticket{
		UserID:   p.Id,
		RoomCode: roomCode,
		Name:     p.Name,
	})
	if err != nil {
		b.log.Warn("failed to issue session ticket", zap.Error(err))
		return
	}
	actor.BindTicket(p.Id, ticketID)
	b.sendToPlayer(p, internal.MsgSessionTicket, internal.SessionTicketData{
		Ticket:   ticketID,
		RoomCode: roomCode,
		PlayerID: p.Id,
	})
}

// readLoop dispatches client messages to the actor until the socket errors
// out, then reports the disconnect. The connID guard makes the report a no-op
// if the player has already reconnected on a newer socket.
func (b *Broker) readLoop(actor *Actor, conn *websocket.Conn, p *internal.Player, connID string) {
	playerID := p.Id
	defer func() {
		_ = conn.Close()
		actor.Disconnect(playerID, connID)
	}()

	for {
		var msg internal.Message[json.RawMessage]
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.Warn("read error", zap.String("player", playerID), zap.Error(err))
			}
			return
		}

		if err := b.dispatch(actor, playerID, msg); err != nil {
			b.sendPlayerError(p, err)
			if err == internal.ErrRoomNotFound {
				return
			}
		}
		if msg.Type == internal.MsgLeaveRoom {
			return
		}
	}
}

func (b *Broker) dispatch(actor *Actor, playerID string, msg internal.Message[json.RawMessage]) error {
	switch msg.Type {
	case internal.MsgToggleReady:
		return actor.ToggleReady(playerID)

	case internal.MsgStartGame:
		return actor.StartRound(playerID)

	case internal.MsgLeaveRoom:
		return actor.Leave(playerID)

	case internal.MsgTransferHost:
		var data internal.TransferHostData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return internal.ErrInvalidTarget
		}
		return actor.TransferHost(playerID, data.TargetID)

	case internal.MsgSubmitSpeech:
		var data internal.SpeechData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return internal.ErrEmptySpeech
		}
		if data.Text == "" {
			return internal.ErrEmptySpeech
		}
		return actor.SubmitSpeech(playerID, data.Text)

	case internal.MsgSubmitVote:
		var data internal.VoteData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return internal.ErrInvalidTarget
		}
		return actor.SubmitVote(playerID, data.TargetID)

	case internal.MsgSubmitGuess:
		var data internal.GuessData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return internal.ErrWrongPhase
		}
		return actor.SubmitGuess(playerID, data.Text)

	default:
		b.log.Debug("unknown message type", zap.String("type", msg.Type))
		return nil
	}
}

// -----------------------------------------------------------------------------
// Socket writes. Once a player is admitted, the actor broadcasts to the same
// connection, so broker writes must take the player's write mutex; raw writes
// are only legal before admission.
// -----------------------------------------------------------------------------

func (b *Broker) sendToPlayer(p *internal.Player, msgType string, data any) {
	if err := p.SafeWriteJSON(internal.Message[any]{Type: msgType, Data: data}); err != nil {
		b.log.Warn("failed to write message", zap.String("type", msgType), zap.Error(err))
	}
}

func (b *Broker) sendPlayerError(p *internal.Player, err error) {
	if gerr, ok := err.(*internal.GameError); ok {
		b.sendToPlayer(p, internal.MsgError, gerr)
		return
	}
	b.sendToPlayer(p, internal.MsgError, &internal.GameError{Code: internal.CodeInternalError, Message: err.Error()})
}

func (b *Broker) writeJSON(conn *websocket.Conn, msgType string, data any) {
	if err := conn.WriteJSON(internal.Message[any]{Type: msgType, Data: data}); err != nil {
		b.log.Warn("failed to write message", zap.String("type", msgType), zap.Error(err))
	}
}

func (b *Broker) writeError(conn *websocket.Conn, gerr *internal.GameError) {
	b.writeJSON(conn, internal.MsgError, gerr)
}

func (b *Broker) writeErrorOf(conn *websocket.Conn, err error) {
	if gerr, ok := err.(*internal.GameError); ok {
		b.writeError(conn, gerr)
		return
	}
	b.writeError(conn, &internal.GameError{Code: internal.CodeInternalError, Message: err.Error()})
}

func (b *Broker) rejectAndClose(conn *websocket.Conn, err error) {
	b.writeErrorOf(conn, err)
	_ = conn.Close()
}
