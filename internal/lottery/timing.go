package lottery

import "time"

// Default timing, matching the launch configuration.
const (
	DefaultBaseInterval             = 72 * time.Hour
	DefaultFastInterval             = 48 * time.Hour
	DefaultFastModeThreshold uint64 = 200 * 1_000_000_000
)

func (s State) fastModeActive() bool {
	return s.FeesAccumulated >= s.FastModeThreshold
}

// ActiveInterval returns the gating interval in force right now. It is
// derived from the fee counter on every call.
func (s State) ActiveInterval() time.Duration {
	if s.fastModeActive() {
		return s.FastInterval
	}
	return s.BaseInterval
}

// NextDrawAt is the earliest time the interval gate opens.
func (s State) NextDrawAt() time.Time {
	return s.LastDrawTime.Add(s.ActiveInterval())
}

// CanDraw reports whether a draw at now would pass every gate.
func (s State) CanDraw(now time.Time) bool {
	return s.checkDrawable(now) == nil
}

// CheckDraw returns the first gate a draw at now would fail, or nil.
func (s State) CheckDraw(now time.Time) error {
	return s.checkDrawable(now)
}

func (s State) checkDrawable(now time.Time) error {
	if !s.Active {
		return ErrLotteryInactive
	}
	if elapsed := now.Sub(s.LastDrawTime); elapsed < s.ActiveInterval() {
		return drawTooEarlyf("draw interval has not elapsed: %s remaining", (s.ActiveInterval() - elapsed).Truncate(time.Second))
	}
	if s.TotalParticipants < MinParticipants || s.TotalTickets == 0 {
		return ErrNotEnoughParticipants
	}
	return nil
}
