package handlers

import (
	"time"

	"github.com/abrezinsky/jackpot/internal/lottery"
)

// EntryRequest is a public contribution
type EntryRequest struct {
	Identity     string `json:"identity"`
	Contribution uint64 `json:"contribution"`
}

// LoginRequest is an admin login
type LoginRequest struct {
	Password string `json:"password"`
}

// GrantTicketsRequest credits tickets without a contribution
type GrantTicketsRequest struct {
	Identity string `json:"identity"`
	Tickets  uint32 `json:"tickets"`
}

// WinnersRequest overrides the pending payout's winners
type WinnersRequest struct {
	Main  string   `json:"main"`
	Minor []string `json:"minor"`
}

// FeesRequest sets the accumulated fee total
type FeesRequest struct {
	FeesAccumulated uint64 `json:"fees_accumulated"`
}

// AmountRequest carries a prize pool amount
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// ScheduleRequest selects a payout schedule by name
type ScheduleRequest struct {
	Schedule string `json:"schedule"`
}

// TimingRequest reconfigures draw gating. Durations use Go syntax ("72h").
// Omitted fields are left unchanged.
type TimingRequest struct {
	BaseInterval      string  `json:"base_interval,omitempty"`
	FastInterval      string  `json:"fast_interval,omitempty"`
	FastModeThreshold *uint64 `json:"fast_mode_threshold,omitempty"`
}

// Timing converts the request into a lottery.Timing
func (r TimingRequest) Timing() (lottery.Timing, error) {
	var t lottery.Timing
	if r.BaseInterval != "" {
		d, err := time.ParseDuration(r.BaseInterval)
		if err != nil {
			return t, BadRequest("Invalid base_interval: " + err.Error())
		}
		t.BaseInterval = &d
	}
	if r.FastInterval != "" {
		d, err := time.ParseDuration(r.FastInterval)
		if err != nil {
			return t, BadRequest("Invalid fast_interval: " + err.Error())
		}
		t.FastInterval = &d
	}
	t.FastModeThreshold = r.FastModeThreshold
	return t, nil
}
