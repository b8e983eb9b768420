package internal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Player struct {
	Id   string          `json:"id"`
	Conn *websocket.Conn `json:"-"`
	Name string          `json:"name"`

	// ConnId identifies the live transport connection. A reconnect replaces
	// Conn and ConnId; a stale connection's disconnect event is recognized by
	// a mismatching ConnId and ignored.
	ConnId string `json:"-"`

	// TicketID is the resume ticket issued for the current connection,
	// revoked when the player permanently departs.
	TicketID string `json:"-"`

	// JoinOrder is the admission sequence number, used for turn ordering and
	// host succession.
	JoinOrder int  `json:"join_order"`
	IsReady   bool `json:"is_ready"`
	IsHost    bool `json:"is_host"`

	IsConnected    bool      `json:"is_connected"`
	JoinedAt       time.Time `json:"joined_at"`
	DisconnectedAt time.Time `json:"-"`

	// Round state, meaningful only while a round is in progress.
	Role   PlayerRole   `json:"-"`
	Status PlayerStatus `json:"status,omitempty"`

	Mu sync.Mutex `json:"-"`
}

type PlayerSnapshot struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	JoinOrder   int          `json:"join_order"`
	IsReady     bool         `json:"is_ready"`
	IsHost      bool         `json:"is_host"`
	IsConnected bool         `json:"is_connected"`
	Status      PlayerStatus `json:"status,omitempty"`
}

func (p *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		ID:          p.Id,
		Name:        p.Name,
		JoinOrder:   p.JoinOrder,
		IsReady:     p.IsReady,
		IsHost:      p.IsHost,
		IsConnected: p.IsConnected,
		Status:      p.Status,
	}
}

func (p *Player) ResetRoundState() {
	p.Role = ""
	p.Status = ""
}

// SafeWriteJSON serializes writes to the player's connection. gorilla/websocket
// allows only one concurrent writer per connection.
func (p *Player) SafeWriteJSON(v any) error {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	if p.Conn == nil {
		return ErrNotConnected
	}
	return p.Conn.WriteJSON(v)
}
