package internal

import (
	"testing"
)

func makeRoom(ids ...string) *Room {
	r := &Room{
		Code:       "ABC123",
		Status:     StatusWaiting,
		Visibility: VisibilityPublic,
		MinPlayers: DefaultMinPlayers,
		MaxPlayers: DefaultMaxPlayers,
		Players:    make(map[string]*Player),
	}
	for i, id := range ids {
		r.JoinSeq++
		r.Players[id] = &Player{
			Id:          id,
			Name:        id,
			JoinOrder:   r.JoinSeq,
			IsHost:      i == 0,
			IsConnected: true,
		}
	}
	return r
}

func TestBuildTurnOrderRotation(t *testing.T) {
	r := makeRoom("a", "b", "c", "d")

	order := r.BuildTurnOrder()
	want := []string{"b", "c", "d", "a"}
	if len(order) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestBuildTurnOrderHostNotFirstJoiner(t *testing.T) {
	r := makeRoom("a", "b", "c")
	r.Players["a"].IsHost = false
	r.Players["b"].IsHost = true

	order := r.BuildTurnOrder()
	want := []string{"c", "a", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestBuildTurnOrderIsPermutation(t *testing.T) {
	r := makeRoom("a", "b", "c", "d", "e")

	order := r.BuildTurnOrder()
	if len(order) != r.MemberCount() {
		t.Fatalf("expected %d entries, got %d", r.MemberCount(), len(order))
	}
	seen := make(map[string]bool)
	for _, id := range order {
		if seen[id] {
			t.Fatalf("duplicate id %q in turn order %v", id, order)
		}
		seen[id] = true
		if _, ok := r.Players[id]; !ok {
			t.Fatalf("unknown id %q in turn order", id)
		}
	}
}

func TestNextHostByJoinOrder(t *testing.T) {
	r := makeRoom("a", "b", "c")

	next := r.NextHost()
	if next == nil || next.Id != "b" {
		t.Fatalf("expected b as next host, got %+v", next)
	}

	delete(r.Players, "b")
	next = r.NextHost()
	if next == nil || next.Id != "c" {
		t.Fatalf("expected c as next host, got %+v", next)
	}
}

func TestReadyOrHostCountImplicitHost(t *testing.T) {
	r := makeRoom("a", "b", "c")
	if got := r.ReadyOrHostCount(); got != 1 {
		t.Fatalf("expected 1 (host only), got %d", got)
	}

	r.Players["b"].IsReady = true
	r.Players["c"].IsReady = true
	if got := r.ReadyOrHostCount(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestNormalizeGuess(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"apple", "apple"},
		{"Apple ", "apple"},
		{" APPLE", "apple"},
		{"  Green Tea  ", "green tea"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeGuess(c.in); got != c.want {
			t.Errorf("NormalizeGuess(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidRoomCode(t *testing.T) {
	valid := []string{"ABC123", "abcdef", "000000", "Zz9Yy8"}
	for _, code := range valid {
		if !ValidRoomCode(code) {
			t.Errorf("expected %q to be valid", code)
		}
	}
	invalid := []string{"", "ABC12", "ABC1234", "ABC-12", "ABC 12", "ABC12é"}
	for _, code := range invalid {
		if ValidRoomCode(code) {
			t.Errorf("expected %q to be invalid", code)
		}
	}
}
