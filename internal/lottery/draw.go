package lottery

import "time"

// DrawResult reports what a draw decided.
type DrawResult struct {
	DrawNumber   uint64        `json:"draw_number"`
	Seed         uint64        `json:"seed"`
	BallCount    uint8         `json:"ball_count"`
	Outcome      Outcome       `json:"outcome"`
	Winners      Winners       `json:"winners"`
	Extension    time.Duration `json:"extension,omitempty"`
	NextDrawAt   time.Time     `json:"next_draw_at"`
	Participants uint64        `json:"participants"`
	Tickets      uint64        `json:"tickets"`
	DrawnAt      time.Time     `json:"drawn_at"`
}

// Draw derives a seed from in, rolls the ball count and applies the payout
// or rollover path. in.Timestamp is the draw's "now".
//
// On the payout path winners are selected from a snapshot of the ledger
// and left pending for Payout. On the rollover path the ledger and pool are
// kept and the draw clock is pushed past now by the alternating extension.
// Winners left over from an earlier unpaid draw are discarded either way.
func (s State) Draw(in RandomnessInput) (State, DrawResult, error) {
	now := in.Time()
	if err := s.checkDrawable(now); err != nil {
		return s, DrawResult{}, err
	}

	seed := DeriveSeed(in, s.TotalParticipants, s.DrawCount)
	ball := BallCount(seed)
	outcome := OutcomeFor(ball)

	next := s.clone()
	next.DrawCount++
	next.BallCount = ball
	next.Winners = Winners{}
	next.FastMode = next.fastModeActive()

	res := DrawResult{
		DrawNumber:   next.DrawCount,
		Seed:         seed,
		BallCount:    ball,
		Outcome:      outcome,
		Participants: s.TotalParticipants,
		Tickets:      s.TotalTickets,
		DrawnAt:      now,
	}

	switch outcome {
	case OutcomePayout:
		sel, err := Select(seed, s.Snapshot(), s.TotalTickets)
		if err != nil {
			return s, DrawResult{}, err
		}
		next.LastSeed = seed
		next.Winners = sel.Winners()
		next.LastDrawTime = now
		res.Winners = sel.Winners()
	case OutcomeRollover:
		next.LastSeed = 0
		next.RolloverStreak++
		res.Extension = RolloverExtension(next.RolloverStreak)
		next.LastDrawTime = now.Add(res.Extension)
	}

	res.NextDrawAt = next.NextDrawAt()
	return next, res, nil
}
