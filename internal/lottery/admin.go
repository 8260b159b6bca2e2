package lottery

import (
	"math"
	"time"
)

// MaxInitialJackpot caps the opening prize pool.
const MaxInitialJackpot uint64 = 1_000_000 * 1_000_000_000

// IsAdmin is the single capability check guarding every admin setter.
func IsAdmin(caller, admin Identity) bool {
	return admin != "" && caller == admin
}

// Initialize creates an active lottery owned by admin with the default
// timing and the given schedule.
func Initialize(admin Identity, jackpot uint64, now time.Time, sc Schedule) (State, error) {
	if admin == "" {
		return State{}, invalidConfigf("admin identity is required")
	}
	if jackpot == 0 || jackpot > MaxInitialJackpot {
		return State{}, invalidConfigf("initial jackpot must be between 1 and %d", MaxInitialJackpot)
	}
	if err := sc.Validate(); err != nil {
		return State{}, err
	}
	s := State{
		Admin:             admin,
		PrizePool:         jackpot,
		LastDrawTime:      now.UTC(),
		BaseInterval:      DefaultBaseInterval,
		FastInterval:      DefaultFastInterval,
		FastModeThreshold: DefaultFastModeThreshold,
		Active:            true,
		Schedule:          sc,
		index:             make(map[Identity]int),
	}
	s.FastMode = s.fastModeActive()
	return s, nil
}

func (s State) authorize(caller Identity) error {
	if !IsAdmin(caller, s.Admin) {
		return ErrUnauthorized
	}
	return nil
}

// SetActive turns entries and draws on or off.
func (s State) SetActive(caller Identity, active bool) (State, error) {
	if err := s.authorize(caller); err != nil {
		return s, err
	}
	next := s.clone()
	next.Active = active
	return next, nil
}

// TogglePause flips the active flag.
func (s State) TogglePause(caller Identity) (State, error) {
	return s.SetActive(caller, !s.Active)
}

// UpdateFees sets the accumulated fee counter and recomputes fast mode.
func (s State) UpdateFees(caller Identity, total uint64) (State, error) {
	if err := s.authorize(caller); err != nil {
		return s, err
	}
	next := s.clone()
	next.FeesAccumulated = total
	next.FastMode = next.fastModeActive()
	return next, nil
}

// Timing is a partial timing update. Nil fields are left unchanged.
type Timing struct {
	BaseInterval      *time.Duration `json:"base_interval,omitempty"`
	FastInterval      *time.Duration `json:"fast_interval,omitempty"`
	FastModeThreshold *uint64        `json:"fast_mode_threshold,omitempty"`
}

// ConfigureTiming replaces the gating intervals and threshold.
func (s State) ConfigureTiming(caller Identity, t Timing) (State, error) {
	if err := s.authorize(caller); err != nil {
		return s, err
	}
	next := s.clone()
	if t.BaseInterval != nil {
		if *t.BaseInterval <= 0 {
			return s, invalidConfigf("base interval must be positive")
		}
		next.BaseInterval = *t.BaseInterval
	}
	if t.FastInterval != nil {
		if *t.FastInterval <= 0 {
			return s, invalidConfigf("fast interval must be positive")
		}
		next.FastInterval = *t.FastInterval
	}
	if t.FastModeThreshold != nil {
		next.FastModeThreshold = *t.FastModeThreshold
	}
	next.FastMode = next.fastModeActive()
	return next, nil
}

// SetPrizePool replaces the prize pool.
func (s State) SetPrizePool(caller Identity, amount uint64) (State, error) {
	if err := s.authorize(caller); err != nil {
		return s, err
	}
	next := s.clone()
	next.PrizePool = amount
	return next, nil
}

// FundJackpot adds amount to the prize pool.
func (s State) FundJackpot(caller Identity, amount uint64) (State, error) {
	if err := s.authorize(caller); err != nil {
		return s, err
	}
	if amount == 0 {
		return s, ErrInsufficientValue
	}
	if s.PrizePool > math.MaxUint64-amount {
		return s, invalidConfigf("prize pool overflow")
	}
	next := s.clone()
	next.PrizePool += amount
	return next, nil
}

// SetSchedule swaps the payout schedule. It is refused while a payout is
// pending so the winners are paid on the table they were drawn under.
func (s State) SetSchedule(caller Identity, sc Schedule) (State, error) {
	if err := s.authorize(caller); err != nil {
		return s, err
	}
	if err := sc.Validate(); err != nil {
		return s, err
	}
	if s.PendingPayout() {
		return s, ErrPayoutNotAllowed
	}
	next := s.clone()
	next.Schedule = sc
	return next, nil
}

// SetWinners overrides the pending winners of a payout-outcome draw.
func (s State) SetWinners(caller Identity, w Winners) (State, error) {
	if err := s.authorize(caller); err != nil {
		return s, err
	}
	if s.LastSeed == 0 {
		return s, ErrNoWinners
	}
	if w.Main == "" {
		return s, invalidConfigf("main winner is required")
	}
	if len(w.Minor) > MaxMinorWinners {
		return s, invalidConfigf("at most %d minor winners, got %d", MaxMinorWinners, len(w.Minor))
	}
	if _, ok := s.lookup(w.Main); !ok {
		return s, invalidConfigf("main winner %s is not a participant", w.Main)
	}
	seen := map[Identity]bool{w.Main: true}
	for _, m := range w.Minor {
		if seen[m] {
			return s, invalidConfigf("minor winner %s is repeated or is the main winner", m)
		}
		if _, ok := s.lookup(m); !ok {
			return s, invalidConfigf("minor winner %s is not a participant", m)
		}
		seen[m] = true
	}
	next := s.clone()
	next.Winners = w.clone()
	return next, nil
}
