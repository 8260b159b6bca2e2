package lottery

import (
	"math"
	"time"
)

// Contribution bands, in hundredths of a unit of value.
const (
	MinContribution   uint64 = 2_000
	MidContribution   uint64 = 10_000
	LargeContribution uint64 = 50_000
	ticketsSmall      uint32 = 1
	ticketsMid        uint32 = 4
	ticketsLarge      uint32 = 10
)

// TicketsForContribution converts a contribution into a ticket count.
// Contributions below MinContribution yield zero tickets.
func TicketsForContribution(contribution uint64) uint32 {
	switch {
	case contribution >= LargeContribution:
		return ticketsLarge
	case contribution >= MidContribution:
		return ticketsMid
	case contribution >= MinContribution:
		return ticketsSmall
	default:
		return 0
	}
}

// EntryResult reports the outcome of a recorded entry.
type EntryResult struct {
	Participant        Identity `json:"participant"`
	TicketsGranted     uint32   `json:"tickets_granted"`
	ParticipantTickets uint32   `json:"participant_tickets"`
	Contribution       uint64   `json:"contribution"`
	NewParticipant     bool     `json:"new_participant"`
	TotalTickets       uint64   `json:"total_tickets"`
	TotalParticipants  uint64   `json:"total_participants"`
}

// RecordEntry converts contribution to tickets and credits them to p.
// A repeat contribution in the same round adds to the existing entry.
func (s State) RecordEntry(p Identity, contribution uint64, now time.Time) (State, EntryResult, error) {
	if !s.Active {
		return s, EntryResult{}, ErrLotteryInactive
	}
	tickets := TicketsForContribution(contribution)
	if tickets == 0 {
		return s, EntryResult{}, ErrInsufficientValue
	}
	return s.credit(p, tickets, contribution, now)
}

// GrantTickets credits an explicit ticket count to p without value
// conversion. The recorded contribution is unchanged.
func (s State) GrantTickets(p Identity, tickets uint32, now time.Time) (State, EntryResult, error) {
	if !s.Active {
		return s, EntryResult{}, ErrLotteryInactive
	}
	if tickets == 0 {
		return s, EntryResult{}, ErrInsufficientValue
	}
	return s.credit(p, tickets, 0, now)
}

func (s State) credit(p Identity, tickets uint32, contribution uint64, now time.Time) (State, EntryResult, error) {
	if p == "" {
		return s, EntryResult{}, invalidConfigf("participant identity is required")
	}
	if s.TotalTickets > math.MaxUint64-uint64(tickets) {
		return s, EntryResult{}, invalidConfigf("total ticket count overflow")
	}

	next := s.clone()
	res := EntryResult{Participant: p, TicketsGranted: tickets}

	if i, ok := next.lookup(p); ok {
		e := &next.Entries[i]
		if e.Tickets > math.MaxUint32-tickets {
			return s, EntryResult{}, invalidConfigf("ticket count overflow for %s", p)
		}
		if e.Contribution > math.MaxUint64-contribution {
			return s, EntryResult{}, invalidConfigf("contribution overflow for %s", p)
		}
		e.Tickets += tickets
		e.Contribution += contribution
		res.ParticipantTickets = e.Tickets
		res.Contribution = e.Contribution
	} else {
		next.Entries = append(next.Entries, Entry{
			Participant:  p,
			Tickets:      tickets,
			Contribution: contribution,
			EnteredAt:    now.UTC(),
		})
		next.index[p] = len(next.Entries) - 1
		next.TotalParticipants++
		res.NewParticipant = true
		res.ParticipantTickets = tickets
		res.Contribution = contribution
	}

	next.TotalTickets += uint64(tickets)
	res.TotalTickets = next.TotalTickets
	res.TotalParticipants = next.TotalParticipants
	return next, res, nil
}

// Weight is one ledger row as seen by the selector.
type Weight struct {
	Participant Identity `json:"participant"`
	Tickets     uint64   `json:"tickets"`
}

// Snapshot copies the ledger in ledger order. The result shares nothing
// with s, so later entries cannot influence a selection made from it.
func (s State) Snapshot() []Weight {
	out := make([]Weight, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = Weight{Participant: e.Participant, Tickets: uint64(e.Tickets)}
	}
	return out
}

func (s *State) clearLedger() {
	s.Entries = nil
	s.index = make(map[Identity]int)
	s.TotalParticipants = 0
	s.TotalTickets = 0
}
