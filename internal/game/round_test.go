package game

import (
	"testing"
	"time"

	"github.com/m16khb/liar-game-sub001/internal"
)

// startStdRound spins up a four-player room and starts a round. It returns
// the actor plus the round facts fixed at start.
func startStdRound(t *testing.T, mut func(*Config)) (a *Actor, liarID, keyword string, turnOrder []string) {
	t.Helper()
	reg := newTestRegistry(t, mut)
	a = reg.GetOrCreate("ROOM01")
	admitAll(t, a, "alice", "bob", "carol", "dave")
	readyAll(t, a, "bob", "carol", "dave")
	if err := a.StartRound("alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	a.inspect(t, func(r *internal.Room) {
		liarID = r.Round.LiarID
		keyword = r.Round.Keyword
		turnOrder = append([]string(nil), r.Round.TurnOrder...)
	})
	return a, liarID, keyword, turnOrder
}

// speakAll walks the whole discussion in turn order, which closes the phase.
func speakAll(t *testing.T, a *Actor, turnOrder []string) {
	t.Helper()
	for _, id := range turnOrder {
		if err := a.SubmitSpeech(id, "I definitely know what this is"); err != nil {
			t.Fatalf("speech by %s: %v", id, err)
		}
	}
}

// voteAllFor makes every player vote target, except target itself which votes
// fallback. Plurality lands on target.
func voteAllFor(t *testing.T, a *Actor, voters []string, target, fallback string) {
	t.Helper()
	for _, id := range voters {
		want := target
		if id == target {
			want = fallback
		}
		if err := a.SubmitVote(id, want); err != nil {
			t.Fatalf("vote by %s: %v", id, err)
		}
	}
}

// castTiedVotes splits the room evenly between t1 and t2: they vote for each
// other and the remaining two voters take one side each.
func castTiedVotes(t *testing.T, a *Actor, turnOrder []string, t1, t2 string) {
	t.Helper()
	sides := []string{t1, t2}
	next := 0
	for _, id := range turnOrder {
		var target string
		switch id {
		case t1:
			target = t2
		case t2:
			target = t1
		default:
			target = sides[next%2]
			next++
		}
		if err := a.SubmitVote(id, target); err != nil {
			t.Fatalf("vote by %s: %v", id, err)
		}
	}
}

// regulars returns the non-liar player ids in turn order.
func regulars(turnOrder []string, liarID string) []string {
	out := make([]string, 0, len(turnOrder))
	for _, id := range turnOrder {
		if id != liarID {
			out = append(out, id)
		}
	}
	return out
}

// =============================================================================
// ROUND START
// =============================================================================

func TestStartRoundOpensDiscussion(t *testing.T) {
	a, liarID, keyword, turnOrder := startStdRound(t, nil)

	if liarID == "" {
		t.Fatal("expected a liar to be chosen")
	}
	if keyword == "" {
		t.Fatal("expected a keyword")
	}
	want := []string{"bob", "carol", "dave", "alice"}
	for i := range want {
		if turnOrder[i] != want[i] {
			t.Fatalf("expected turn order %v, got %v", want, turnOrder)
		}
	}

	a.inspect(t, func(r *internal.Room) {
		if r.Status != internal.StatusPlaying {
			t.Fatalf("expected playing, got %s", r.Status)
		}
		if r.Round.Phase != internal.PhaseDiscussion {
			t.Fatalf("expected discussion, got %s", r.Round.Phase)
		}
		liars := 0
		for _, p := range r.Players {
			if p.Role == internal.RoleLiar {
				liars++
			}
		}
		if liars != 1 {
			t.Fatalf("expected exactly one liar, got %d", liars)
		}
		if r.Round.CurrentTurnPlayer() != "bob" {
			t.Fatalf("expected bob to speak first, got %s", r.Round.CurrentTurnPlayer())
		}
	})
}

func TestLiarChoiceDeterministicPerSeed(t *testing.T) {
	_, liar1, _, _ := startStdRound(t, func(c *Config) { c.RandSeed = 7 })
	_, liar2, _, _ := startStdRound(t, func(c *Config) { c.RandSeed = 7 })
	if liar1 != liar2 {
		t.Fatalf("expected identical liar for identical seed, got %s vs %s", liar1, liar2)
	}
}

// =============================================================================
// DISCUSSION
// =============================================================================

func TestSpeechOutOfTurnRejected(t *testing.T) {
	a, _, _, turnOrder := startStdRound(t, nil)

	notFirst := turnOrder[1]
	err := a.SubmitSpeech(notFirst, "me first")
	if code := gameErrCode(t, err); code != internal.CodeNotYourTurn {
		t.Fatalf("expected not_your_turn, got %s", code)
	}
}

func TestSpeechesAdvanceIntoVoting(t *testing.T) {
	a, _, _, turnOrder := startStdRound(t, nil)
	speakAll(t, a, turnOrder)

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseVoting {
			t.Fatalf("expected voting after all speeches, got %s", r.Round.Phase)
		}
		if len(r.Round.Speeches) != len(turnOrder) {
			t.Fatalf("expected %d speeches, got %d", len(turnOrder), len(r.Round.Speeches))
		}
		for i, entry := range r.Round.Speeches {
			if entry.PlayerID != turnOrder[i] {
				t.Fatalf("speech %d by %s, expected %s", i, entry.PlayerID, turnOrder[i])
			}
		}
	})
}

func TestTurnTimeoutSkipsSpeakerForGood(t *testing.T) {
	a, _, _, turnOrder := startStdRound(t, func(c *Config) {
		c.TurnDuration = 100 * time.Millisecond
		c.DiscussionDuration = time.Minute
	})

	time.Sleep(150 * time.Millisecond)

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseDiscussion {
			t.Fatalf("expected still in discussion, got %s", r.Round.Phase)
		}
		if r.Round.CurrentTurnPlayer() == turnOrder[0] {
			t.Fatal("expected first speaker to have been skipped")
		}
	})

	// A skipped turn is final.
	err := a.SubmitSpeech(turnOrder[0], "wait, my turn")
	if code := gameErrCode(t, err); code != internal.CodeNotYourTurn {
		t.Fatalf("expected not_your_turn for skipped speaker, got %s", code)
	}
}

func TestDiscussionDeadlineOpensVoting(t *testing.T) {
	a, _, _, _ := startStdRound(t, func(c *Config) {
		c.DiscussionDuration = 40 * time.Millisecond
		c.TurnDuration = time.Minute
	})

	time.Sleep(200 * time.Millisecond)

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseVoting {
			t.Fatalf("expected voting after deadline, got %s", r.Round.Phase)
		}
	})
}

// =============================================================================
// VOTING
// =============================================================================

func TestVoteValidation(t *testing.T) {
	a, _, _, turnOrder := startStdRound(t, nil)

	// Wrong phase first.
	err := a.SubmitVote(turnOrder[0], turnOrder[1])
	if code := gameErrCode(t, err); code != internal.CodeWrongPhase {
		t.Fatalf("expected wrong_phase, got %s", code)
	}

	speakAll(t, a, turnOrder)

	err = a.SubmitVote(turnOrder[0], turnOrder[0])
	if code := gameErrCode(t, err); code != internal.CodeSelfVote {
		t.Fatalf("expected self_vote, got %s", code)
	}

	err = a.SubmitVote(turnOrder[0], "ghost")
	if code := gameErrCode(t, err); code != internal.CodeInvalidTarget {
		t.Fatalf("expected invalid_target, got %s", code)
	}

	if err := a.SubmitVote(turnOrder[0], turnOrder[1]); err != nil {
		t.Fatalf("vote: %v", err)
	}
	err = a.SubmitVote(turnOrder[0], turnOrder[2])
	if code := gameErrCode(t, err); code != internal.CodeAlreadyVoted {
		t.Fatalf("expected already_voted, got %s", code)
	}
}

func TestVoteOutRegularHandsRoundToLiar(t *testing.T) {
	a, liarID, _, turnOrder := startStdRound(t, nil)
	speakAll(t, a, turnOrder)

	regs := regulars(turnOrder, liarID)
	target := regs[0]
	voteAllFor(t, a, turnOrder, target, regs[1])

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseResult {
			t.Fatalf("expected result, got %s", r.Round.Phase)
		}
		if r.Round.Outcome.Winner != internal.WinnerLiar {
			t.Fatalf("expected liar win, got %s", r.Round.Outcome.Winner)
		}
		if r.Round.Outcome.Reason != "regular_eliminated" {
			t.Fatalf("unexpected reason %s", r.Round.Outcome.Reason)
		}
		if r.Players[target].Status != internal.PlayerEliminated {
			t.Fatal("expected target eliminated")
		}
	})
}

func TestVoteOutLiarOpensGuess(t *testing.T) {
	a, liarID, _, turnOrder := startStdRound(t, nil)
	speakAll(t, a, turnOrder)

	voteAllFor(t, a, turnOrder, liarID, regulars(turnOrder, liarID)[0])

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseGuess {
			t.Fatalf("expected guess, got %s", r.Round.Phase)
		}
		if r.Players[liarID].Status != internal.PlayerEliminated {
			t.Fatal("expected liar eliminated")
		}
	})
}

func TestTiedVoteReopensDiscussionOnce(t *testing.T) {
	a, liarID, _, turnOrder := startStdRound(t, nil)
	speakAll(t, a, turnOrder)

	// Tie between the first two regulars so the liar's identity never
	// changes the shape of the test.
	regs := regulars(turnOrder, liarID)
	t1, t2 := regs[0], regs[1]
	tieVote := func() { castTiedVotes(t, a, turnOrder, t1, t2) }
	tieVote()

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseDiscussion {
			t.Fatalf("expected re-discussion after tie, got %s", r.Round.Phase)
		}
		if r.Round.Rediscussions != 1 {
			t.Fatalf("expected 1 rediscussion, got %d", r.Round.Rediscussions)
		}
		if len(r.Round.Votes) != 0 {
			t.Fatal("expected votes cleared for revote")
		}
	})

	// Second tie falls back to a deterministic elimination.
	speakAll(t, a, turnOrder)
	tieVote()

	var lower string
	a.inspect(t, func(r *internal.Room) {
		p1, p2 := r.Players[t1], r.Players[t2]
		lower = t1
		if p2.JoinOrder < p1.JoinOrder {
			lower = t2
		}
		if r.Players[lower].Status != internal.PlayerEliminated {
			t.Fatalf("expected %s (lowest join order of tie) eliminated", lower)
		}
		if r.Round.Phase == internal.PhaseVoting || r.Round.Phase == internal.PhaseDiscussion {
			t.Fatalf("expected round resolved after second tie, got %s", r.Round.Phase)
		}
	})
}

func TestTiePolicyEliminateFirst(t *testing.T) {
	a, liarID, _, turnOrder := startStdRound(t, func(c *Config) {
		c.TiePolicy = internal.TieEliminateFirst
	})
	speakAll(t, a, turnOrder)

	regs := regulars(turnOrder, liarID)
	castTiedVotes(t, a, turnOrder, regs[0], regs[1])

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase == internal.PhaseDiscussion {
			t.Fatal("expected no re-discussion under eliminate_first policy")
		}
		eliminated := 0
		for _, p := range r.Players {
			if p.Status == internal.PlayerEliminated {
				eliminated++
			}
		}
		if eliminated != 1 {
			t.Fatalf("expected exactly one elimination, got %d", eliminated)
		}
	})
}

func TestTallyVotesDeterministic(t *testing.T) {
	votes := map[string]string{
		"a": "b",
		"b": "a",
		"c": "b",
		"d": "a",
	}
	for i := 0; i < 10; i++ {
		counts, leaders := TallyVotes(votes)
		if counts["a"] != 2 || counts["b"] != 2 {
			t.Fatalf("unexpected counts %v", counts)
		}
		if len(leaders) != 2 || leaders[0] != "a" || leaders[1] != "b" {
			t.Fatalf("expected sorted leaders [a b], got %v", leaders)
		}
	}
}

// =============================================================================
// GUESS
// =============================================================================

func caughtLiar(t *testing.T, mut func(*Config)) (*Actor, string, string) {
	t.Helper()
	a, liarID, keyword, turnOrder := startStdRound(t, mut)
	speakAll(t, a, turnOrder)
	voteAllFor(t, a, turnOrder, liarID, regulars(turnOrder, liarID)[0])
	return a, liarID, keyword
}

func TestGuessOnlyLiarMaySubmit(t *testing.T) {
	a, liarID, _ := caughtLiar(t, nil)

	other := "alice"
	if other == liarID {
		other = "bob"
	}
	err := a.SubmitGuess(other, "whatever")
	if code := gameErrCode(t, err); code != internal.CodeNotLiar {
		t.Fatalf("expected not_liar, got %s", code)
	}
}

func TestCorrectGuessReversesOutcome(t *testing.T) {
	a, liarID, keyword := caughtLiar(t, nil)

	// Normalization makes case and padding irrelevant.
	if err := a.SubmitGuess(liarID, "  "+keyword+" "); err != nil {
		t.Fatalf("guess: %v", err)
	}

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseResult {
			t.Fatalf("expected result, got %s", r.Round.Phase)
		}
		if !r.Round.Guess.Correct {
			t.Fatal("expected guess recorded as correct")
		}
		if r.Round.Guess.RemainingMS < 0 {
			t.Fatalf("expected non-negative remaining ms, got %d", r.Round.Guess.RemainingMS)
		}
		if r.Round.Outcome.Winner != internal.WinnerLiar {
			t.Fatalf("expected liar win on correct guess, got %s", r.Round.Outcome.Winner)
		}
		if r.Round.Outcome.Reason != "guess_correct" {
			t.Fatalf("unexpected reason %s", r.Round.Outcome.Reason)
		}
	})
}

func TestWrongGuessConfirmsRegularsWin(t *testing.T) {
	a, liarID, _ := caughtLiar(t, nil)

	if err := a.SubmitGuess(liarID, "definitely not it"); err != nil {
		t.Fatalf("guess: %v", err)
	}

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Outcome.Winner != internal.WinnerRegulars {
			t.Fatalf("expected regulars win, got %s", r.Round.Outcome.Winner)
		}
	})

	err := a.SubmitGuess(liarID, "second try")
	if code := gameErrCode(t, err); code != internal.CodeWrongPhase {
		t.Fatalf("expected wrong_phase after round resolved, got %s", code)
	}
}

func TestGuessTimeoutResolvesForRegulars(t *testing.T) {
	a, _, _ := caughtLiar(t, func(c *Config) {
		c.GuessDuration = 30 * time.Millisecond
		c.ResultDisplay = time.Minute
	})

	time.Sleep(150 * time.Millisecond)

	a.inspect(t, func(r *internal.Room) {
		if r.Round.Phase != internal.PhaseResult {
			t.Fatalf("expected result after guess timeout, got %s", r.Round.Phase)
		}
		if r.Round.Outcome.Winner != internal.WinnerRegulars {
			t.Fatalf("expected regulars win on timeout, got %s", r.Round.Outcome.Winner)
		}
		if r.Round.Outcome.Reason != "guess_timeout" {
			t.Fatalf("unexpected reason %s", r.Round.Outcome.Reason)
		}
	})
}

// =============================================================================
// RESET & ABORT
// =============================================================================

func TestRoundResetClearsReadiness(t *testing.T) {
	a, liarID, _ := caughtLiar(t, func(c *Config) {
		c.ResultDisplay = 30 * time.Millisecond
	})
	if err := a.SubmitGuess(liarID, "wrong"); err != nil {
		t.Fatalf("guess: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	a.inspect(t, func(r *internal.Room) {
		if r.Round != nil {
			t.Fatal("expected round folded away")
		}
		if r.Status != internal.StatusWaiting {
			t.Fatalf("expected waiting, got %s", r.Status)
		}
		for _, p := range r.Players {
			if p.Role != "" || p.Status != "" {
				t.Fatalf("expected round state cleared for %s", p.Id)
			}
			if p.IsReady && !p.IsHost {
				t.Fatalf("expected readiness cleared for %s", p.Id)
			}
		}
	})
}

func TestLiarLeavingAbortsRound(t *testing.T) {
	a, liarID, _, _ := startStdRound(t, nil)

	if err := a.Leave(liarID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	a.inspect(t, func(r *internal.Room) {
		if r.Round != nil {
			t.Fatal("expected round aborted when liar left")
		}
		if r.Status != internal.StatusWaiting {
			t.Fatalf("expected waiting, got %s", r.Status)
		}
		if r.MemberCount() != 3 {
			t.Fatalf("expected 3 remaining members, got %d", r.MemberCount())
		}
	})
}

func TestDepartingSpeakerForfeitsTurn(t *testing.T) {
	a, liarID, _, turnOrder := startStdRound(t, nil)

	first := turnOrder[0]
	if first == liarID {
		t.Skip("first speaker drew the liar role, covered by TestLiarLeavingAbortsRound")
	}
	if err := a.Leave(first); err != nil {
		t.Fatalf("leave: %v", err)
	}

	a.inspect(t, func(r *internal.Room) {
		if r.Round == nil {
			t.Fatal("expected round to continue")
		}
		if r.Round.CurrentTurnPlayer() == first {
			t.Fatal("expected turn to move past the departed speaker")
		}
	})
}
