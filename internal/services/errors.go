package services

import "github.com/abrezinsky/jackpot/internal/errors"

// Service errors
var (
	ErrNotInitialized  = errors.Unavailable("lottery has not been initialized", nil)
	ErrInvalidIdentity = errors.InvalidInput("identity must be a base58 public key")
	ErrUnknownSchedule = errors.InvalidInput("unknown payout schedule")
	ErrInvalidPage     = errors.InvalidInput("offset must not be negative")
)
