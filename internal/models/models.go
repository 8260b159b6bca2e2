package models

import (
	"time"

	"github.com/abrezinsky/jackpot/internal/lottery"
)

// DrawRecord is a persisted draw
type DrawRecord struct {
	ID           string             `json:"id"`
	DrawNumber   uint64             `json:"draw_number"`
	Slot         uint64             `json:"slot"`
	Seed         uint64             `json:"seed"`
	BallCount    uint8              `json:"ball_count"`
	Outcome      string             `json:"outcome"`
	MainWinner   lottery.Identity   `json:"main_winner,omitempty"`
	MinorWinners []lottery.Identity `json:"minor_winners,omitempty"`
	Participants uint64             `json:"participants"`
	Tickets      uint64             `json:"tickets"`
	PrizePool    uint64             `json:"prize_pool"`
	Extension    time.Duration      `json:"extension,omitempty"`
	NextDrawAt   time.Time          `json:"next_draw_at"`
	DrawnAt      time.Time          `json:"drawn_at"`
}

// PayoutRecord is a persisted payout
type PayoutRecord struct {
	ID           string               `json:"id"`
	DrawNumber   uint64               `json:"draw_number"`
	Seed         uint64               `json:"seed"`
	Schedule     string               `json:"schedule"`
	Distribution lottery.Distribution `json:"distribution"`
	Payments     []lottery.Payment    `json:"payments"`
	PaidAt       time.Time            `json:"paid_at"`
}

// Contribution is one accepted entry into the ledger
type Contribution struct {
	ID          int64            `json:"id"`
	Participant lottery.Identity `json:"participant"`
	Amount      uint64           `json:"amount"`
	Tickets     uint32           `json:"tickets"`
	DrawNumber  uint64           `json:"draw_number"`
	CreatedAt   time.Time        `json:"created_at"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
