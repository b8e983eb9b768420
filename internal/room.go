package internal

import (
	"sort"
	"strings"
)

// Methods below run only inside the owning actor loop.

func (r *Room) MemberCount() int {
	return len(r.Players)
}

// Host returns the current host, or nil for an empty room.
func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// MembersByJoinOrder returns all members sorted by admission sequence.
func (r *Room) MembersByJoinOrder() []*Player {
	members := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		members = append(members, p)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinOrder < members[j].JoinOrder
	})
	return members
}

// NextHost picks the host successor: the remaining member with the lowest
// join order.
func (r *Room) NextHost() *Player {
	var next *Player
	for _, p := range r.Players {
		if p.IsHost {
			continue
		}
		if next == nil || p.JoinOrder < next.JoinOrder {
			next = p
		}
	}
	return next
}

// ReadyOrHostCount counts members who are ready or are the host; the host is
// implicitly counted as ready for start checks.
func (r *Room) ReadyOrHostCount() int {
	count := 0
	for _, p := range r.Players {
		if p.IsHost || p.IsReady {
			count++
		}
	}
	return count
}

// ActiveCount counts round participants who have not been eliminated.
func (r *Room) ActiveCount() int {
	count := 0
	for _, p := range r.Players {
		if p.Status == PlayerActive {
			count++
		}
	}
	return count
}

// ActiveConnected lists round participants who can currently act, sorted by
// join order.
func (r *Room) ActiveConnected() []*Player {
	active := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Status == PlayerActive && p.IsConnected {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].JoinOrder < active[j].JoinOrder
	})
	return active
}

// BuildTurnOrder fixes the speaking order at round start: membership join
// order rotated so the member right after the host goes first and the host
// goes last.
func (r *Room) BuildTurnOrder() []string {
	members := r.MembersByJoinOrder()
	hostIdx := 0
	for i, p := range members {
		if p.IsHost {
			hostIdx = i
			break
		}
	}
	order := make([]string, 0, len(members))
	for i := 1; i <= len(members); i++ {
		order = append(order, members[(hostIdx+i)%len(members)].Id)
	}
	return order
}

// Snapshots returns public player projections sorted by join order.
func (r *Room) Snapshots() []PlayerSnapshot {
	members := r.MembersByJoinOrder()
	snaps := make([]PlayerSnapshot, 0, len(members))
	for _, p := range members {
		snaps = append(snaps, p.Snapshot())
	}
	return snaps
}

// NormalizeGuess canonicalizes a keyword attempt for comparison: surrounding
// whitespace trimmed, case folded.
func NormalizeGuess(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidRoomCode reports whether the code is well-formed: exactly
// RoomCodeLength ASCII letters or digits.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
