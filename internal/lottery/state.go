// Package lottery implements the jackpot draw state machine.
//
// Every operation is a method on a State value that returns the next State
// together with a result, or the unchanged State and an *Error. Callers
// persist the returned State only when err is nil, which makes each call a
// single all-or-nothing transition. The package performs no I/O and never
// reads the wall clock: time and chain inputs are supplied by the caller.
package lottery

import "time"

// Identity is an opaque participant or admin identity (a wallet address).
type Identity string

// MaxMinorWinners is the number of minor winner slots drawn per payout.
const MaxMinorWinners = 8

// MinParticipants is the unique participant floor for a draw: one main and
// eight distinct minor winners.
const MinParticipants = MaxMinorWinners + 1

// Entry is one participant's accumulated tickets for the current round.
type Entry struct {
	Participant  Identity  `json:"participant"`
	Tickets      uint32    `json:"ticket_count"`
	Contribution uint64    `json:"contribution"`
	EnteredAt    time.Time `json:"entry_time"`
}

// Winners holds the pending payout recipients. It is empty except between a
// payout-outcome draw and the payout that follows it.
type Winners struct {
	Main  Identity   `json:"main,omitempty"`
	Minor []Identity `json:"minor,omitempty"`
}

// Empty reports whether no main winner is set
func (w Winners) Empty() bool {
	return w.Main == ""
}

func (w Winners) clone() Winners {
	out := Winners{Main: w.Main}
	if len(w.Minor) > 0 {
		out.Minor = append([]Identity(nil), w.Minor...)
	}
	return out
}

// State is the singleton lottery instance plus the participant ledger of the
// current round.
type State struct {
	Admin Identity `json:"admin"`

	PrizePool uint64 `json:"prize_pool"`
	CarryOver uint64 `json:"carry_over"`

	LastDrawTime      time.Time     `json:"last_draw_time"`
	BaseInterval      time.Duration `json:"base_interval"`
	FastInterval      time.Duration `json:"fast_interval"`
	FastModeThreshold uint64        `json:"fast_mode_threshold"`
	FeesAccumulated   uint64        `json:"fees_accumulated"`
	FastMode          bool          `json:"is_fast_mode"`
	Active            bool          `json:"is_active"`

	TotalParticipants uint64 `json:"total_participants"`
	TotalTickets      uint64 `json:"total_tickets"`
	DrawCount         uint64 `json:"draw_count"`
	RolloverStreak    uint32 `json:"rollover_streak"`

	LastSeed  uint64  `json:"last_seed"`
	BallCount uint8   `json:"ball_count"`
	Winners   Winners `json:"winners"`

	Schedule Schedule `json:"schedule"`

	// Entries is ordered by first entry within the round; that order is
	// the ledger order the selector walks.
	Entries []Entry `json:"entries"`

	index map[Identity]int
}

// clone returns a deep copy safe to mutate without touching s.
func (s State) clone() State {
	next := s
	next.Winners = s.Winners.clone()
	next.Entries = make([]Entry, len(s.Entries))
	copy(next.Entries, s.Entries)
	next.index = make(map[Identity]int, len(next.Entries))
	for i, e := range next.Entries {
		next.index[e.Participant] = i
	}
	return next
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	return s.clone()
}

func (s State) lookup(p Identity) (int, bool) {
	if s.index != nil {
		i, ok := s.index[p]
		return i, ok
	}
	for i, e := range s.Entries {
		if e.Participant == p {
			return i, true
		}
	}
	return 0, false
}

// Entry returns the current-round entry for p.
func (s State) Entry(p Identity) (Entry, bool) {
	i, ok := s.lookup(p)
	if !ok {
		return Entry{}, false
	}
	return s.Entries[i], true
}

// PendingPayout reports whether a payout-outcome draw is waiting to be paid.
func (s State) PendingPayout() bool {
	return s.LastSeed != 0 && !s.Winners.Empty()
}

// CheckInvariants verifies the ledger aggregates against the live entries.
// It is used when a state is restored from storage.
func (s State) CheckInvariants() error {
	var tickets uint64
	seen := make(map[Identity]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if _, dup := seen[e.Participant]; dup {
			return invalidConfigf("duplicate entry for participant %s", e.Participant)
		}
		seen[e.Participant] = struct{}{}
		if e.Tickets == 0 {
			return invalidConfigf("entry for %s has no tickets", e.Participant)
		}
		tickets += uint64(e.Tickets)
	}
	if tickets != s.TotalTickets {
		return invalidConfigf("total tickets %d does not match ledger sum %d", s.TotalTickets, tickets)
	}
	if uint64(len(s.Entries)) != s.TotalParticipants {
		return invalidConfigf("total participants %d does not match ledger size %d", s.TotalParticipants, len(s.Entries))
	}
	if len(s.Winners.Minor) > MaxMinorWinners {
		return invalidConfigf("%d minor winners exceeds %d", len(s.Winners.Minor), MaxMinorWinners)
	}
	if s.BaseInterval <= 0 || s.FastInterval <= 0 {
		return invalidConfigf("draw intervals must be positive")
	}
	return s.Schedule.Validate()
}
