package lottery

import "time"

// RandomnessInput is the chain state sampled at draw time. Slot comes from
// a sequence the caller does not control; Timestamp is unix seconds and
// doubles as the draw's "now".
type RandomnessInput struct {
	Slot      uint64 `json:"slot"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns Timestamp as a UTC time
func (in RandomnessInput) Time() time.Time {
	return time.Unix(in.Timestamp, 0).UTC()
}

// DeriveSeed mixes the draw inputs with wrapping arithmetic. The seed is not
// cryptographically secure. When Timestamp is even the product is even for
// every slot, so the outcome parity is fixed by participants+draws alone and
// the slot only picks the winners.
//
// Zero is reserved as the "no pending winners" sentinel, so a zero mix is
// mapped to 1.
func DeriveSeed(in RandomnessInput, participants, draws uint64) uint64 {
	seed := in.Slot*uint64(in.Timestamp) + participants + draws
	if seed == 0 {
		return 1
	}
	return seed
}
