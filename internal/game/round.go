package game

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal"
)

// =============================================================================
// PHASE STATE MACHINE
// =============================================================================
//
// waiting -> discussion -> voting -> (guess | result) -> waiting
//
// Deadlines are wall-clock values computed once on phase entry so that
// concurrently arriving actions are judged consistently. Each transition bumps
// the room epoch, which invalidates any timer scheduled for the previous
// phase.

func (a *Actor) startRound(r *internal.Room, requesterID string) error {
	requester, ok := r.Players[requesterID]
	if !ok || !requester.IsHost {
		return internal.ErrNotHost
	}
	if r.Status != internal.StatusWaiting {
		return internal.ErrAlreadyPlaying
	}
	if r.MemberCount() < r.MinPlayers {
		return internal.ErrNotEnoughPlayers
	}
	if r.ReadyOrHostCount() < r.MinPlayers {
		return internal.ErrNotAllReady
	}

	members := r.MembersByJoinOrder()
	liar := members[a.reg.intn(len(members))]
	category, keyword := a.cfg.Topics()

	for _, p := range members {
		p.Role = internal.RoleRegular
		p.Status = internal.PlayerActive
		if !p.IsConnected {
			p.Status = internal.PlayerDisconnected
		}
	}
	liar.Role = internal.RoleLiar

	now := time.Now()
	r.Status = internal.StatusPlaying
	r.Round = &internal.GameRound{
		Phase:        internal.PhaseDiscussion,
		TurnOrder:    r.BuildTurnOrder(),
		TurnIndex:    0,
		Deadline:     now.Add(a.cfg.DiscussionDuration),
		TurnDeadline: now.Add(a.cfg.TurnDuration),
		LiarID:       liar.Id,
		Category:     category,
		Keyword:      keyword,
		Votes:        make(map[string]string),
		StartedAt:    now,
	}
	r.Epoch++

	a.log.Info("round started",
		zap.Strings("turn_order", r.Round.TurnOrder),
		zap.String("category", category),
	)

	// Each member learns their own role privately; the liar never appears in
	// a broadcast and sees the category but not the keyword.
	for _, p := range members {
		init := internal.RoundInitData{
			Role:         p.Role,
			Category:     category,
			TurnOrder:    r.Round.TurnOrder,
			CurrentTurn:  r.Round.CurrentTurnPlayer(),
			Deadline:     r.Round.Deadline,
			TurnDeadline: r.Round.TurnDeadline,
		}
		if p.Role != internal.RoleLiar {
			init.Keyword = keyword
		}
		a.sendTo(p, internal.MsgGameStarted, init)
	}

	a.schedulePhaseTimer(r, a.cfg.DiscussionDuration, "discussion_deadline", func(r *internal.Room) {
		a.startVoting(r)
	})
	a.scheduleTurnTimer(r, a.cfg.TurnDuration, func(r *internal.Room) {
		a.skipTurn(r)
	})
	// The first speaker may already be mid-grace.
	a.skipUnavailableTurns(r)
	return nil
}

// -----------------------------------------------------------------------------
// Discussion
// -----------------------------------------------------------------------------

func (a *Actor) submitSpeech(r *internal.Room, playerID, text string) error {
	p, ok := r.Players[playerID]
	if !ok {
		return internal.ErrNotAMember
	}
	if r.Round == nil || r.Round.Phase != internal.PhaseDiscussion {
		return internal.ErrWrongPhase
	}
	if r.Round.CurrentTurnPlayer() != playerID || p.Status != internal.PlayerActive {
		return internal.ErrNotYourTurn
	}

	entry := internal.SpeechEntry{PlayerID: playerID, Text: text, At: time.Now()}
	r.Round.Speeches = append(r.Round.Speeches, entry)

	a.log.Info("speech added", zap.String("player", playerID))
	a.advanceTurn(r, "")
	data := internal.SpeechAddedData{Entry: entry}
	if r.Round != nil && r.Round.Phase == internal.PhaseDiscussion {
		data.NextTurn = r.Round.CurrentTurnPlayer()
		data.TurnDeadline = r.Round.TurnDeadline
	}
	a.broadcast(r, internal.MsgSpeechAdded, data)
	return nil
}

// skipTurn handles a per-turn sub-timeout: a skipped turn is final, never
// retried.
func (a *Actor) skipTurn(r *internal.Room) {
	skipped := r.Round.CurrentTurnPlayer()
	a.log.Info("turn timed out", zap.String("player", skipped))
	a.advanceTurn(r, skipped)
}

// advanceTurn moves the turn pointer, skipping members who can no longer
// speak, and opens voting once the order is exhausted.
func (a *Actor) advanceTurn(r *internal.Room, skippedID string) {
	if r.Round == nil || r.Round.Phase != internal.PhaseDiscussion {
		return
	}
	r.Round.TurnIndex++
	a.skipUnavailableTurns(r)
	if r.Round == nil || r.Round.Phase != internal.PhaseDiscussion {
		return
	}
	r.Round.TurnDeadline = time.Now().Add(a.cfg.TurnDuration)
	a.scheduleTurnTimer(r, a.cfg.TurnDuration, func(r *internal.Room) {
		a.skipTurn(r)
	})
	if skippedID != "" {
		a.broadcast(r, internal.MsgTurnAdvanced, internal.TurnAdvancedData{
			SkippedID:    skippedID,
			CurrentTurn:  r.Round.CurrentTurnPlayer(),
			TurnDeadline: r.Round.TurnDeadline,
		})
	}
}

// skipUnavailableTurns fast-forwards past eliminated or disconnected members
// and moves to voting when every turn is done.
func (a *Actor) skipUnavailableTurns(r *internal.Room) {
	for r.Round.TurnIndex < len(r.Round.TurnOrder) {
		p, ok := r.Players[r.Round.CurrentTurnPlayer()]
		if ok && p.Status == internal.PlayerActive && p.IsConnected {
			return
		}
		r.Round.TurnIndex++
	}
	a.startVoting(r)
}

// -----------------------------------------------------------------------------
// Voting
// -----------------------------------------------------------------------------

func (a *Actor) startVoting(r *internal.Room) {
	if r.Round == nil {
		return
	}
	now := time.Now()
	r.Round.Phase = internal.PhaseVoting
	r.Round.Deadline = now.Add(a.cfg.VotingDuration)
	r.Round.Votes = make(map[string]string)
	r.Epoch++
	a.stopTurnTimer()

	a.log.Info("voting opened", zap.Time("deadline", r.Round.Deadline))
	a.broadcast(r, internal.MsgPhaseChanged, internal.PhaseChangedData{
		Phase:    internal.PhaseVoting,
		Deadline: r.Round.Deadline,
	})
	a.schedulePhaseTimer(r, a.cfg.VotingDuration, "voting_deadline", func(r *internal.Room) {
		a.resolveVotes(r)
	})
}

func (a *Actor) submitVote(r *internal.Room, voterID, targetID string) error {
	voter, ok := r.Players[voterID]
	if !ok {
		return internal.ErrNotAMember
	}
	if r.Round == nil || r.Round.Phase != internal.PhaseVoting {
		return internal.ErrWrongPhase
	}
	if voter.Status != internal.PlayerActive {
		return internal.ErrWrongPhase
	}
	if _, voted := r.Round.Votes[voterID]; voted {
		return internal.ErrAlreadyVoted
	}
	if voterID == targetID {
		return internal.ErrSelfVote
	}
	target, ok := r.Players[targetID]
	if !ok || (target.Status != internal.PlayerActive && target.Status != internal.PlayerDisconnected) {
		return internal.ErrInvalidTarget
	}

	r.Round.Votes[voterID] = targetID
	a.log.Info("vote cast",
		zap.String("voter", voterID),
		zap.Int("votes", len(r.Round.Votes)),
	)
	a.broadcast(r, internal.MsgVoteTallyUpdated, internal.VoteTallyData{
		VotesCast: len(r.Round.Votes),
		Expected:  len(r.ActiveConnected()),
	})
	a.checkVotingComplete(r)
	return nil
}

// checkVotingComplete resolves early once every player who can vote has.
func (a *Actor) checkVotingComplete(r *internal.Room) {
	if r.Round == nil || r.Round.Phase != internal.PhaseVoting {
		return
	}
	if len(r.Round.Votes) >= len(r.ActiveConnected()) {
		a.stopPhaseTimer()
		a.resolveVotes(r)
	}
}

// TallyVotes counts votes per target and returns the plurality leaders sorted
// for determinism. Pure; recomputation over the same tally yields the same
// result.
func TallyVotes(votes map[string]string) (counts map[string]int, leaders []string) {
	counts = make(map[string]int)
	for _, target := range votes {
		counts[target]++
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	for target, n := range counts {
		if n == max {
			leaders = append(leaders, target)
		}
	}
	sort.Strings(leaders)
	return counts, leaders
}

func (a *Actor) resolveVotes(r *internal.Room) {
	counts, leaders := TallyVotes(r.Round.Votes)
	if len(leaders) == 0 {
		a.log.Warn("voting closed with no votes")
		a.abortRound(r, "no_votes")
		return
	}

	if len(leaders) > 1 {
		// Tie. Default policy re-opens a short discussion instead of forcing
		// an arbitrary elimination; a second tie falls through to the
		// deterministic fallback so the round stays bounded.
		if a.cfg.TiePolicy == internal.TieRediscuss && r.Round.Rediscussions == 0 {
			r.Round.Rediscussions++
			a.log.Info("vote tied, reopening discussion", zap.Strings("leaders", leaders))
			a.broadcast(r, internal.MsgVoteTallyUpdated, internal.VoteTallyData{
				VotesCast: len(r.Round.Votes),
				Expected:  len(r.ActiveConnected()),
				Counts:    counts,
				Tied:      true,
			})
			a.startRediscussion(r)
			return
		}
		leaders = []string{a.lowestJoinOrder(r, leaders)}
	}

	eliminatedID := leaders[0]
	eliminated, ok := r.Players[eliminatedID]
	if !ok {
		a.abortRound(r, "eliminated_player_missing")
		return
	}
	eliminated.Status = internal.PlayerEliminated

	a.log.Info("player eliminated",
		zap.String("player", eliminatedID),
		zap.Bool("was_liar", eliminated.Role == internal.RoleLiar),
	)
	a.broadcast(r, internal.MsgVoteTallyUpdated, internal.VoteTallyData{
		VotesCast: len(r.Round.Votes),
		Expected:  len(r.ActiveConnected()),
		Counts:    counts,
	})

	if eliminated.Role == internal.RoleLiar {
		a.startGuess(r, eliminatedID)
		return
	}
	// Eliminating a regular hands the round to the liar outright.
	a.finishRound(r, internal.RoundOutcome{
		Winner:       internal.WinnerLiar,
		Reason:       "regular_eliminated",
		LiarID:       r.Round.LiarID,
		EliminatedID: eliminatedID,
		Keyword:      r.Round.Keyword,
	})
}

func (a *Actor) lowestJoinOrder(r *internal.Room, ids []string) string {
	best := ids[0]
	for _, id := range ids[1:] {
		p, ok := r.Players[id]
		bp, bok := r.Players[best]
		if ok && (!bok || p.JoinOrder < bp.JoinOrder) {
			best = id
		}
	}
	return best
}

// startRediscussion re-enters discussion after a tied vote: everyone speaks
// again on a shortened clock, then a fresh vote runs.
func (a *Actor) startRediscussion(r *internal.Room) {
	now := time.Now()
	r.Round.Phase = internal.PhaseDiscussion
	r.Round.TurnIndex = 0
	r.Round.Deadline = now.Add(a.cfg.RediscussDuration)
	r.Round.TurnDeadline = now.Add(a.cfg.TurnDuration)
	r.Round.Votes = make(map[string]string)
	r.Epoch++

	a.broadcast(r, internal.MsgPhaseChanged, internal.PhaseChangedData{
		Phase:        internal.PhaseDiscussion,
		Deadline:     r.Round.Deadline,
		CurrentTurn:  r.Round.CurrentTurnPlayer(),
		TurnDeadline: r.Round.TurnDeadline,
	})
	a.schedulePhaseTimer(r, a.cfg.RediscussDuration, "rediscussion_deadline", func(r *internal.Room) {
		a.startVoting(r)
	})
	a.scheduleTurnTimer(r, a.cfg.TurnDuration, func(r *internal.Room) {
		a.skipTurn(r)
	})
	a.skipUnavailableTurns(r)
}

// -----------------------------------------------------------------------------
// Guess
// -----------------------------------------------------------------------------

func (a *Actor) startGuess(r *internal.Room, eliminatedID string) {
	now := time.Now()
	r.Round.Phase = internal.PhaseGuess
	r.Round.Deadline = now.Add(a.cfg.GuessDuration)
	r.Epoch++

	a.log.Info("liar caught, guess phase opened", zap.String("liar", r.Round.LiarID))
	a.broadcast(r, internal.MsgPhaseChanged, internal.PhaseChangedData{
		Phase:        internal.PhaseGuess,
		Deadline:     r.Round.Deadline,
		EliminatedID: eliminatedID,
		Category:     r.Round.Category,
	})
	a.schedulePhaseTimer(r, a.cfg.GuessDuration, "guess_deadline", func(r *internal.Room) {
		// Deadline expiry resolves exactly like a wrong guess.
		a.finishRound(r, internal.RoundOutcome{
			Winner:       internal.WinnerRegulars,
			Reason:       "guess_timeout",
			LiarID:       r.Round.LiarID,
			EliminatedID: r.Round.LiarID,
			Keyword:      r.Round.Keyword,
		})
	})
}

func (a *Actor) submitGuess(r *internal.Room, playerID, text string) error {
	if r.Round == nil || r.Round.Phase != internal.PhaseGuess {
		return internal.ErrWrongPhase
	}
	if playerID != r.Round.LiarID {
		return internal.ErrNotLiar
	}
	if r.Round.Guess != nil {
		return internal.ErrAlreadyGuessed
	}

	correct := internal.NormalizeGuess(text) == internal.NormalizeGuess(r.Round.Keyword)
	remaining := time.Until(r.Round.Deadline).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	r.Round.Guess = &internal.GuessRecord{
		Attempt:     text,
		Correct:     correct,
		RemainingMS: remaining,
	}

	outcome := internal.RoundOutcome{
		LiarID:       r.Round.LiarID,
		EliminatedID: r.Round.LiarID,
		Keyword:      r.Round.Keyword,
	}
	if correct {
		outcome.Winner = internal.WinnerLiar
		outcome.Reason = "guess_correct"
	} else {
		outcome.Winner = internal.WinnerRegulars
		outcome.Reason = "guess_wrong"
	}
	a.log.Info("guess submitted",
		zap.Bool("correct", correct),
		zap.Int64("remaining_ms", remaining),
	)
	a.finishRound(r, outcome)
	return nil
}

// -----------------------------------------------------------------------------
// Result & reset
// -----------------------------------------------------------------------------

func (a *Actor) finishRound(r *internal.Room, outcome internal.RoundOutcome) {
	r.Round.Phase = internal.PhaseResult
	r.Round.Outcome = &outcome
	r.Epoch++
	a.stopPhaseTimer()
	a.stopTurnTimer()

	a.log.Info("round finished",
		zap.String("winner", string(outcome.Winner)),
		zap.String("reason", outcome.Reason),
	)
	a.broadcast(r, internal.MsgGuessResult, internal.GuessResultData{
		Outcome: outcome,
		Guess:   r.Round.Guess,
	})
	a.broadcast(r, internal.MsgPhaseChanged, internal.PhaseChangedData{
		Phase:    internal.PhaseResult,
		Deadline: time.Now().Add(a.cfg.ResultDisplay),
	})
	if a.reg.sink != nil {
		a.reg.sink.RoundResult(r.Code, outcome, r.Round.StartedAt, time.Now())
	}

	a.schedulePhaseTimer(r, a.cfg.ResultDisplay, "result_display", func(r *internal.Room) {
		a.resetToWaiting(r)
	})
}

// abortRound tears a round down without an outcome and returns to waiting.
func (a *Actor) abortRound(r *internal.Room, reason string) {
	a.log.Info("round aborted", zap.String("reason", reason))
	a.resetToWaiting(r)
}

// resetToWaiting folds the round away, preserving membership. Readiness is
// cleared for everyone but the host.
func (a *Actor) resetToWaiting(r *internal.Room) {
	a.stopPhaseTimer()
	a.stopTurnTimer()
	r.Round = nil
	r.Status = internal.StatusWaiting
	r.Epoch++
	for _, p := range r.Players {
		p.ResetRoundState()
		if !p.IsHost {
			p.IsReady = false
		}
	}
	a.log.Info("room back to waiting", zap.Int("members", r.MemberCount()))
	a.broadcastSnapshot(r, internal.MsgRoomUpdated)
}
