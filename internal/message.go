package internal

import "time"

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Client -> server message types.
const (
	MsgJoin         = "join"
	MsgToggleReady  = "toggle_ready"
	MsgStartGame    = "start_game"
	MsgLeaveRoom    = "leave_room"
	MsgTransferHost = "transfer_host"
	MsgSubmitSpeech = "submit_speech"
	MsgSubmitVote   = "submit_vote"
	MsgSubmitGuess  = "submit_guess"
)

// Server -> client message types.
const (
	MsgRoomJoined         = "room_joined"
	MsgRoomUpdated        = "room_updated"
	MsgPlayerReadyChanged = "player_ready_changed"
	MsgGameStarted        = "game_started"
	MsgHostTransferred    = "host_transferred"
	MsgRoomDeleted        = "room_deleted"
	MsgPhaseChanged       = "phase_changed"
	MsgSpeechAdded        = "speech_added"
	MsgTurnAdvanced       = "turn_advanced"
	MsgVoteTallyUpdated   = "vote_tally_updated"
	MsgGuessResult        = "guess_result"
	MsgSessionTicket      = "session_ticket"
	MsgError              = "error"
)

// RoomSnapshot is the full-state broadcast: sent on join, host transfer,
// round start and round reset.
type RoomSnapshot struct {
	Room    RoomInfo         `json:"room"`
	Players []PlayerSnapshot `json:"players"`
	Phase   GamePhase        `json:"phase"`
	// Round fields are zero outside an active round.
	TurnOrder   []string      `json:"turn_order,omitempty"`
	CurrentTurn string        `json:"current_turn,omitempty"`
	Deadline    time.Time     `json:"deadline,omitempty"`
	Category    string        `json:"category,omitempty"`
	Speeches    []SpeechEntry `json:"speeches,omitempty"`
}

type ReadyChangedData struct {
	PlayerID   string           `json:"player_id"`
	IsReady    bool             `json:"is_ready"`
	ReadyCount int              `json:"ready_count"`
	Players    []PlayerSnapshot `json:"players"`
}

// RoundInitData is sent privately to each member at round start; Keyword is
// blank for the liar, who sees the category only.
type RoundInitData struct {
	Role         PlayerRole `json:"role"`
	Category     string     `json:"category"`
	Keyword      string     `json:"keyword,omitempty"`
	TurnOrder    []string   `json:"turn_order"`
	CurrentTurn  string     `json:"current_turn"`
	Deadline     time.Time  `json:"deadline"`
	TurnDeadline time.Time  `json:"turn_deadline"`
}

type HostTransferredData struct {
	NewHostID string           `json:"new_host_id"`
	Players   []PlayerSnapshot `json:"players"`
}

type RoomDeletedData struct {
	Reason string `json:"reason"`
}

type PhaseChangedData struct {
	Phase        GamePhase `json:"phase"`
	Deadline     time.Time `json:"deadline"`
	CurrentTurn  string    `json:"current_turn,omitempty"`
	TurnDeadline time.Time `json:"turn_deadline,omitempty"`
	// EliminatedID is set on the transition out of voting.
	EliminatedID string `json:"eliminated_id,omitempty"`
	// Category accompanies the guess phase so spectators know the topic.
	Category string `json:"category,omitempty"`
}

type SpeechAddedData struct {
	Entry        SpeechEntry `json:"entry"`
	NextTurn     string      `json:"next_turn,omitempty"`
	TurnDeadline time.Time   `json:"turn_deadline,omitempty"`
}

type TurnAdvancedData struct {
	SkippedID    string    `json:"skipped_id,omitempty"`
	CurrentTurn  string    `json:"current_turn,omitempty"`
	TurnDeadline time.Time `json:"turn_deadline,omitempty"`
}

type VoteTallyData struct {
	VotesCast int `json:"votes_cast"`
	Expected  int `json:"expected"`
	// Counts per target id, revealed only once voting has resolved.
	Counts map[string]int `json:"counts,omitempty"`
	Tied   bool           `json:"tied,omitempty"`
}

type GuessResultData struct {
	Outcome RoundOutcome `json:"outcome"`
	Guess   *GuessRecord `json:"guess,omitempty"`
}

type SessionTicketData struct {
	Ticket   string `json:"ticket"`
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

// Client-side payloads.
type JoinData struct {
	RoomCode     string `json:"room_code"`
	Title        string `json:"title,omitempty"`
	AccessSecret string `json:"access_secret,omitempty"`
}

type TransferHostData struct {
	TargetID string `json:"target_id"`
}

type SpeechData struct {
	Text string `json:"text"`
}

type VoteData struct {
	TargetID string `json:"target_id"`
}

type GuessData struct {
	Text string `json:"text"`
}

// Response is the JSON wrapper used by the plain HTTP endpoints.
type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}
