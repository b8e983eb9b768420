package internal

import (
	"time"
)

const (
	DefaultMinPlayers = 3
	DefaultMaxPlayers = 8
	RoomCodeLength    = 6
)

type GamePhase string

const (
	PhaseWaiting    GamePhase = "waiting"
	PhaseDiscussion GamePhase = "discussion"
	PhaseVoting     GamePhase = "voting"
	PhaseGuess      GamePhase = "guess"
	PhaseResult     GamePhase = "result"
)

type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

type RoomVisibility string

const (
	VisibilityPublic  RoomVisibility = "public"
	VisibilityPrivate RoomVisibility = "private"
)

type PlayerRole string

const (
	RoleLiar    PlayerRole = "liar"
	RoleRegular PlayerRole = "regular"
)

type PlayerStatus string

const (
	PlayerActive       PlayerStatus = "active"
	PlayerEliminated   PlayerStatus = "eliminated"
	PlayerDisconnected PlayerStatus = "disconnected"
)

type Winner string

const (
	WinnerLiar     Winner = "liar"
	WinnerRegulars Winner = "regulars"
)

// TiePolicy decides what happens when a vote ends without a single plurality
// winner.
type TiePolicy string

const (
	// TieRediscuss re-enters a short discussion round and votes again.
	TieRediscuss TiePolicy = "rediscuss"
	// TieEliminateFirst eliminates the tied player with the lowest join order.
	TieEliminateFirst TiePolicy = "eliminate_first"
)

// Room is the authoritative state of one game room. It is owned exclusively
// by the room's actor goroutine; nothing outside that loop reads or writes it.
type Room struct {
	Code         string         `json:"code"`
	Title        string         `json:"title"`
	Visibility   RoomVisibility `json:"visibility"`
	AccessSecret string         `json:"-"`
	Status       RoomStatus     `json:"status"`
	MinPlayers   int            `json:"min_players"`
	MaxPlayers   int            `json:"max_players"`

	Players map[string]*Player `json:"-"`
	JoinSeq int                `json:"-"`

	// Round is non-nil from round start until the room returns to waiting.
	Round *GameRound `json:"-"`

	// Epoch increments on every phase transition and round reset. Scheduled
	// timers capture it and are ignored on fire if it has since moved on.
	Epoch uint64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// SpeechEntry is one line of the accumulated discussion log.
type SpeechEntry struct {
	PlayerID string    `json:"player_id"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// GuessRecord captures the liar's single keyword attempt.
type GuessRecord struct {
	Attempt     string `json:"attempt"`
	Correct     bool   `json:"correct"`
	RemainingMS int64  `json:"remaining_ms"`
}

// RoundOutcome is the immutable result of a completed round.
type RoundOutcome struct {
	Winner       Winner `json:"winner"`
	Reason       string `json:"reason"`
	LiarID       string `json:"liar_id"`
	EliminatedID string `json:"eliminated_id,omitempty"`
	Keyword      string `json:"keyword"`
}

// GameRound holds all state of one round from role assignment to result.
type GameRound struct {
	Phase GamePhase `json:"phase"`

	// TurnOrder is fixed at round start: membership join order rotated so the
	// member right after the host speaks first and the host speaks last.
	TurnOrder []string `json:"turn_order"`
	TurnIndex int      `json:"turn_index"`

	// Deadlines are computed once on phase entry, never re-derived per tick.
	Deadline     time.Time `json:"deadline"`
	TurnDeadline time.Time `json:"turn_deadline"`

	LiarID   string `json:"-"`
	Category string `json:"category"`
	Keyword  string `json:"-"`

	Speeches []SpeechEntry     `json:"speeches"`
	Votes    map[string]string `json:"-"` // voter id -> target id

	Guess   *GuessRecord  `json:"guess,omitempty"`
	Outcome *RoundOutcome `json:"outcome,omitempty"`

	// Rediscussions counts tie-triggered returns to discussion this round.
	Rediscussions int       `json:"rediscussions"`
	StartedAt     time.Time `json:"started_at"`
}

// CurrentTurnPlayer returns the id whose discussion turn it is, or "" when the
// order is exhausted.
func (g *GameRound) CurrentTurnPlayer() string {
	if g.TurnIndex < 0 || g.TurnIndex >= len(g.TurnOrder) {
		return ""
	}
	return g.TurnOrder[g.TurnIndex]
}

// RoomInfo is the public projection of a room used in snapshots and listings.
type RoomInfo struct {
	Code        string         `json:"code"`
	Title       string         `json:"title"`
	Visibility  RoomVisibility `json:"visibility"`
	Status      RoomStatus     `json:"status"`
	MinPlayers  int            `json:"min_players"`
	MaxPlayers  int            `json:"max_players"`
	MemberCount int            `json:"member_count"`
}

// Info builds the public projection. Actor-loop only.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		Code:        r.Code,
		Title:       r.Title,
		Visibility:  r.Visibility,
		Status:      r.Status,
		MinPlayers:  r.MinPlayers,
		MaxPlayers:  r.MaxPlayers,
		MemberCount: len(r.Players),
	}
}
