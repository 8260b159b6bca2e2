package lottery

import (
	"math/bits"
	"time"
)

// BasisPoints is 100% in schedule units.
const BasisPoints uint64 = 10_000

// Schedule is a percentage table applied to the distributable pool. All
// shares are in basis points; MinorPoolBps is split evenly across
// MinorSlots.
type Schedule struct {
	Name         string `json:"name"`
	MainBps      uint64 `json:"main_bps"`
	MinorPoolBps uint64 `json:"minor_pool_bps"`
	MinorSlots   int    `json:"minor_slots"`
	HouseBps     uint64 `json:"house_bps"`
	CarryOverBps uint64 `json:"carry_over_bps"`
}

// CanonicalSchedule pays 50% main, 40% across eight minors, 10% house.
var CanonicalSchedule = Schedule{
	Name:         "canonical",
	MainBps:      5_000,
	MinorPoolBps: 4_000,
	MinorSlots:   MaxMinorWinners,
	HouseBps:     1_000,
}

// Legacy68Schedule pays 68% main, 3% to each of eight minors and reserves
// 8% as the next round's opening pool.
var Legacy68Schedule = Schedule{
	Name:         "legacy68",
	MainBps:      6_800,
	MinorPoolBps: 2_400,
	MinorSlots:   MaxMinorWinners,
	CarryOverBps: 800,
}

// ScheduleByName resolves a configured schedule name
func ScheduleByName(name string) (Schedule, bool) {
	switch name {
	case "", CanonicalSchedule.Name:
		return CanonicalSchedule, true
	case Legacy68Schedule.Name:
		return Legacy68Schedule, true
	default:
		return Schedule{}, false
	}
}

// Validate rejects tables whose shares exceed the pool.
func (sc Schedule) Validate() error {
	if sc.MinorSlots < 0 || sc.MinorSlots > MaxMinorWinners {
		return invalidConfigf("minor slots must be between 0 and %d", MaxMinorWinners)
	}
	if sc.MinorPoolBps > 0 && sc.MinorSlots == 0 {
		return invalidConfigf("minor pool share requires at least one minor slot")
	}
	sum := sc.MainBps + sc.MinorPoolBps + sc.HouseBps + sc.CarryOverBps
	if sum > BasisPoints || sc.MainBps > BasisPoints || sc.MinorPoolBps > BasisPoints ||
		sc.HouseBps > BasisPoints || sc.CarryOverBps > BasisPoints {
		return invalidConfigf("schedule %q shares sum to %d bps, above %d", sc.Name, sum, BasisPoints)
	}
	return nil
}

// share returns floor(amount * bps / 10000) without intermediate overflow.
func share(amount, bps uint64) uint64 {
	hi, lo := bits.Mul64(amount, bps)
	q, _ := bits.Div64(hi, lo, BasisPoints)
	return q
}

// Distribution is the per-bucket split of a payout.
//
// Integer division truncates every share. Truncation loss, plus the shares
// of minor slots left empty, is reported as Unallocated and stays with the
// house float; it is never redistributed.
type Distribution struct {
	Total       uint64 `json:"total"`
	Main        uint64 `json:"main"`
	MinorPool   uint64 `json:"minor_pool"`
	MinorEach   uint64 `json:"minor_each"`
	MinorPaid   uint64 `json:"minor_paid"`
	House       uint64 `json:"house"`
	CarryOver   uint64 `json:"carry_over"`
	Unallocated uint64 `json:"unallocated"`
}

// Distribute applies sc to total for the given number of minor winners.
// It is a pure function of its inputs.
func Distribute(total uint64, sc Schedule, minorWinners int) Distribution {
	d := Distribution{
		Total:     total,
		Main:      share(total, sc.MainBps),
		MinorPool: share(total, sc.MinorPoolBps),
		House:     share(total, sc.HouseBps),
		CarryOver: share(total, sc.CarryOverBps),
	}
	if sc.MinorSlots > 0 {
		d.MinorEach = d.MinorPool / uint64(sc.MinorSlots)
	}
	if minorWinners > sc.MinorSlots {
		minorWinners = sc.MinorSlots
	}
	if minorWinners < 0 {
		minorWinners = 0
	}
	d.MinorPaid = d.MinorEach * uint64(minorWinners)
	d.Unallocated = total - d.Main - d.MinorPaid - d.House - d.CarryOver
	return d
}

// Payment roles
const (
	RoleMain  = "main"
	RoleMinor = "minor"
	RoleHouse = "house"
)

// Payment is one transfer computed by a payout.
type Payment struct {
	Recipient Identity `json:"recipient,omitempty"`
	Role      string   `json:"role"`
	Amount    uint64   `json:"amount"`
}

// PayoutResult reports the amounts computed by a payout.
type PayoutResult struct {
	DrawNumber   uint64       `json:"draw_number"`
	Seed         uint64       `json:"seed"`
	BallCount    uint8        `json:"ball_count"`
	Schedule     string       `json:"schedule"`
	Distribution Distribution `json:"distribution"`
	Payments     []Payment    `json:"payments"`
	NextPool     uint64       `json:"next_pool"`
	PaidAt       time.Time    `json:"paid_at"`
}

// Payout pays the pending winners from prize pool plus carry-over and
// resets the round.
func (s State) Payout(now time.Time) (State, PayoutResult, error) {
	if s.BallCount != 0 && s.BallCount%2 == 0 {
		return s, PayoutResult{}, ErrPayoutNotAllowed
	}
	if s.Winners.Empty() {
		return s, PayoutResult{}, ErrNoWinners
	}
	if s.BallCount%2 == 0 {
		return s, PayoutResult{}, ErrPayoutNotAllowed
	}
	if s.PrizePool > ^uint64(0)-s.CarryOver {
		return s, PayoutResult{}, invalidConfigf("distributable pool overflow")
	}

	total := s.PrizePool + s.CarryOver
	d := Distribute(total, s.Schedule, len(s.Winners.Minor))

	res := PayoutResult{
		DrawNumber:   s.DrawCount,
		Seed:         s.LastSeed,
		BallCount:    s.BallCount,
		Schedule:     s.Schedule.Name,
		Distribution: d,
		NextPool:     d.CarryOver,
		PaidAt:       now.UTC(),
	}
	res.Payments = append(res.Payments, Payment{Recipient: s.Winners.Main, Role: RoleMain, Amount: d.Main})
	for i, m := range s.Winners.Minor {
		if i >= s.Schedule.MinorSlots {
			break
		}
		res.Payments = append(res.Payments, Payment{Recipient: m, Role: RoleMinor, Amount: d.MinorEach})
	}
	if d.House > 0 {
		res.Payments = append(res.Payments, Payment{Role: RoleHouse, Amount: d.House})
	}

	next := s.clone()
	next.CarryOver = 0
	next.PrizePool = d.CarryOver
	next.Winners = Winners{}
	next.LastSeed = 0
	next.RolloverStreak = 0
	next.BallCount = 0
	next.clearLedger()
	return next, res, nil
}
