package internal

import "fmt"

type ErrorCode string

const (
	// Validation: rejected before reaching the actor.
	CodeInvalidRoomCode ErrorCode = "invalid_room_code"
	CodeEmptySpeech     ErrorCode = "empty_speech"
	CodeInvalidPayload  ErrorCode = "invalid_payload"

	// State conflict: rejected inside the actor without mutation.
	CodeRoomFull         ErrorCode = "room_full"
	CodeAlreadyPlaying   ErrorCode = "already_playing"
	CodeInvalidAccess    ErrorCode = "invalid_access"
	CodeNotHost          ErrorCode = "not_host"
	CodeNotEnoughPlayers ErrorCode = "not_enough_players"
	CodeNotAllReady      ErrorCode = "not_all_ready"
	CodeWrongPhase       ErrorCode = "wrong_phase"
	CodeNotYourTurn      ErrorCode = "not_your_turn"
	CodeSelfVote         ErrorCode = "self_vote"
	CodeAlreadyVoted     ErrorCode = "already_voted"
	CodeInvalidTarget    ErrorCode = "invalid_target"
	CodeRoundInProgress  ErrorCode = "round_in_progress"
	CodeNotLiar          ErrorCode = "not_liar"
	CodeAlreadyGuessed   ErrorCode = "already_guessed"
	CodeNotAMember       ErrorCode = "not_a_member"

	// Not found: connection-level rejection.
	CodeRoomNotFound ErrorCode = "room_not_found"

	// Transient: the client may retry.
	CodeRoomBusy ErrorCode = "room_busy"

	CodeNotConnected  ErrorCode = "not_connected"
	CodeInternalError ErrorCode = "internal_error"
)

// GameError is the structured rejection returned synchronously to the
// originating connection. Rejections are never broadcast to other members.
type GameError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewGameError(code ErrorCode, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

var (
	ErrInvalidRoomCode  = NewGameError(CodeInvalidRoomCode, "room code must be 6 alphanumeric characters")
	ErrEmptySpeech      = NewGameError(CodeEmptySpeech, "speech text must not be empty")
	ErrRoomFull         = NewGameError(CodeRoomFull, "room is at maximum capacity")
	ErrAlreadyPlaying   = NewGameError(CodeAlreadyPlaying, "a round is already in progress")
	ErrInvalidAccess    = NewGameError(CodeInvalidAccess, "wrong access secret for private room")
	ErrNotHost          = NewGameError(CodeNotHost, "only the host may do this")
	ErrNotEnoughPlayers = NewGameError(CodeNotEnoughPlayers, "not enough players to start")
	ErrNotAllReady      = NewGameError(CodeNotAllReady, "not enough ready players to start")
	ErrWrongPhase       = NewGameError(CodeWrongPhase, "action not valid in the current phase")
	ErrNotYourTurn      = NewGameError(CodeNotYourTurn, "it is not your turn to speak")
	ErrSelfVote         = NewGameError(CodeSelfVote, "you cannot vote for yourself")
	ErrAlreadyVoted     = NewGameError(CodeAlreadyVoted, "you already cast your vote")
	ErrInvalidTarget    = NewGameError(CodeInvalidTarget, "target is not an active member of this room")
	ErrRoundInProgress  = NewGameError(CodeRoundInProgress, "host transfer is frozen during a round")
	ErrNotLiar          = NewGameError(CodeNotLiar, "only the liar may guess the keyword")
	ErrAlreadyGuessed   = NewGameError(CodeAlreadyGuessed, "the guess was already submitted")
	ErrNotAMember       = NewGameError(CodeNotAMember, "you are not a member of this room")
	ErrRoomNotFound     = NewGameError(CodeRoomNotFound, "room does not exist")
	ErrRoomBusy         = NewGameError(CodeRoomBusy, "room is busy, try again")
	ErrNotConnected     = NewGameError(CodeNotConnected, "player connection is closed")
)
