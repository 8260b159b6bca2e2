package services

import (
	"time"

	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
)

// Status is the public snapshot of the lottery
type Status struct {
	Admin             lottery.Identity `json:"admin"`
	Active            bool             `json:"is_active"`
	PrizePool         uint64           `json:"prize_pool"`
	CarryOver         uint64           `json:"carry_over"`
	FeesAccumulated   uint64           `json:"fees_accumulated"`
	FastModeThreshold uint64           `json:"fast_mode_threshold"`
	FastMode          bool             `json:"is_fast_mode"`
	ActiveInterval    int64            `json:"active_interval_seconds"`
	LastDrawTime      time.Time        `json:"last_draw_time"`
	NextDrawAt        time.Time        `json:"next_draw_at"`
	SecondsRemaining  int64            `json:"seconds_remaining"`
	CanDraw           bool             `json:"can_draw"`
	TotalParticipants uint64           `json:"total_participants"`
	TotalTickets      uint64           `json:"total_tickets"`
	DrawCount         uint64           `json:"draw_count"`
	RolloverStreak    uint32           `json:"rollover_streak"`
	BallCount         uint8            `json:"ball_count"`
	PendingPayout     bool             `json:"pending_payout"`
	Winners           lottery.Winners  `json:"winners"`
	Schedule          string           `json:"schedule"`
	ChainSource       string           `json:"chain_source,omitempty"`
	Time              time.Time        `json:"time"`
}

// NewStatus builds the snapshot of st as seen at now
func NewStatus(st lottery.State, now time.Time, chainSource string) *Status {
	next := st.NextDrawAt()
	remaining := int64(0)
	if now.Before(next) {
		remaining = int64(next.Sub(now).Round(time.Second) / time.Second)
	}
	return &Status{
		Admin:             st.Admin,
		Active:            st.Active,
		PrizePool:         st.PrizePool,
		CarryOver:         st.CarryOver,
		FeesAccumulated:   st.FeesAccumulated,
		FastModeThreshold: st.FastModeThreshold,
		FastMode:          st.FastMode,
		ActiveInterval:    int64(st.ActiveInterval() / time.Second),
		LastDrawTime:      st.LastDrawTime,
		NextDrawAt:        next,
		SecondsRemaining:  remaining,
		CanDraw:           st.CanDraw(now),
		TotalParticipants: st.TotalParticipants,
		TotalTickets:      st.TotalTickets,
		DrawCount:         st.DrawCount,
		RolloverStreak:    st.RolloverStreak,
		BallCount:         st.BallCount,
		PendingPayout:     st.PendingPayout(),
		Winners:           st.Winners,
		Schedule:          st.Schedule.Name,
		ChainSource:       chainSource,
		Time:              now.UTC(),
	}
}

// ParticipantInfo is one identity's standing in the current round
type ParticipantInfo struct {
	Participant  lottery.Identity `json:"participant"`
	Entered      bool             `json:"entered"`
	Tickets      uint32           `json:"tickets"`
	Contribution uint64           `json:"contribution"`
	EnteredAt    time.Time        `json:"entered_at,omitempty"`
	TotalTickets uint64           `json:"total_tickets"`
	ChanceBps    uint64           `json:"chance_bps"`
	PendingRole  string           `json:"pending_role,omitempty"`
}

// CrankResult reports what one crank turn did
type CrankResult struct {
	Draw    *models.DrawRecord   `json:"draw,omitempty"`
	Payout  *models.PayoutRecord `json:"payout,omitempty"`
	Skipped string               `json:"skipped,omitempty"`
}
