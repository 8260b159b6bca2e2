package handlers

import (
	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
)

// ParticipantsResponse lists the current round's ledger
type ParticipantsResponse struct {
	Participants []lottery.Entry `json:"participants"`
	Count        int             `json:"count"`
}

// PayoutsResponse is one page of payout history
type PayoutsResponse struct {
	Payouts []models.PayoutRecord `json:"payouts"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// ContributionsResponse lists an identity's recent contributions
type ContributionsResponse struct {
	Participant   string                `json:"participant"`
	Contributions []models.Contribution `json:"contributions"`
}

// LoginResponse names the identity the session acts as
type LoginResponse struct {
	Admin lottery.Identity `json:"admin"`
}

// HealthResponse is returned by /healthz
type HealthResponse struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
}
