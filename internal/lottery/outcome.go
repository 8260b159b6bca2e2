package lottery

import "time"

// MaxBallCount bounds the ball count drawn from the seed.
const MaxBallCount = 30

// Rollover extensions, alternating with the streak parity.
const (
	OddRolloverExtension  = 48 * time.Hour
	EvenRolloverExtension = 72 * time.Hour
)

// Outcome is the path a draw takes
type Outcome int

const (
	OutcomePayout Outcome = iota
	OutcomeRollover
)

func (o Outcome) String() string {
	switch o {
	case OutcomePayout:
		return "payout"
	case OutcomeRollover:
		return "rollover"
	default:
		return "unknown"
	}
}

// MarshalText lets Outcome serialize as its name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// BallCount maps a seed onto 1..MaxBallCount.
func BallCount(seed uint64) uint8 {
	return uint8(seed%MaxBallCount) + 1
}

// OutcomeFor returns payout for odd ball counts and rollover for even.
func OutcomeFor(ball uint8) Outcome {
	if ball%2 == 1 {
		return OutcomePayout
	}
	return OutcomeRollover
}

// RolloverExtension returns how far past now the draw clock is pushed after
// the streak-th consecutive rollover.
func RolloverExtension(streak uint32) time.Duration {
	if streak%2 == 0 {
		return EvenRolloverExtension
	}
	return OddRolloverExtension
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "payout":
		return OutcomePayout, true
	case "rollover":
		return OutcomeRollover, true
	default:
		return 0, false
	}
}
