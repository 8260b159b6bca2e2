// Package chain samples the slot counter that seeds lottery draws.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/jackpot/internal/logger"
)

// ErrInvalidAddress is returned for identities that are not base58 public keys.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Sample is the chain state observed at draw time.
type Sample struct {
	Slot uint64    `json:"slot"`
	Time time.Time `json:"time"`
}

// Client provides chain samples to the draw service.
type Client interface {
	// Sample returns the current slot paired with the current time.
	Sample(ctx context.Context) (Sample, error)
	// Name identifies the source in logs and status output.
	Name() string
}

// SlotRPC is the subset of the Solana RPC client used here.
type SlotRPC interface {
	GetSlot(ctx context.Context, commitment solanarpc.CommitmentType) (uint64, error)
}

// RPCClient samples the finalized slot from a Solana RPC endpoint.
type RPCClient struct {
	rpc        SlotRPC
	endpoint   string
	commitment solanarpc.CommitmentType
	clock      clockwork.Clock
	log        logger.Logger
	lastSlot   atomic.Uint64
}

// NewRPCClient creates a client for the given RPC endpoint
func NewRPCClient(endpoint string, clock clockwork.Clock, log logger.Logger) *RPCClient {
	return NewRPCClientWithRPC(solanarpc.New(endpoint), endpoint, clock, log)
}

// NewRPCClientWithRPC creates a client over an existing RPC implementation
func NewRPCClientWithRPC(rpc SlotRPC, endpoint string, clock clockwork.Clock, log logger.Logger) *RPCClient {
	return &RPCClient{
		rpc:        rpc,
		endpoint:   endpoint,
		commitment: solanarpc.CommitmentFinalized,
		clock:      clock,
		log:        log,
	}
}

// Name returns the RPC endpoint
func (c *RPCClient) Name() string {
	return "solana:" + c.endpoint
}

// Sample fetches the finalized slot. A slot lower than one already observed
// is rejected so that a lagging RPC node cannot replay an earlier seed input.
func (c *RPCClient) Sample(ctx context.Context) (Sample, error) {
	slot, err := c.rpc.GetSlot(ctx, c.commitment)
	if err != nil {
		return Sample{}, fmt.Errorf("get slot from %s: %w", c.endpoint, err)
	}
	if last := c.lastSlot.Load(); slot < last {
		return Sample{}, fmt.Errorf("slot %d went backwards from %d", slot, last)
	}
	c.lastSlot.Store(slot)
	c.log.Debug("Sampled chain slot", "slot", slot, "endpoint", c.endpoint)
	return Sample{Slot: slot, Time: c.clock.Now().UTC()}, nil
}

// LocalClient is an in-process slot counter used when no RPC endpoint is
// configured. It ticks once per sample and never repeats a value.
type LocalClient struct {
	clock clockwork.Clock
	slot  atomic.Uint64
}

// NewLocalClient creates a local counter starting after start.
func NewLocalClient(start uint64, clock clockwork.Clock) *LocalClient {
	c := &LocalClient{clock: clock}
	c.slot.Store(start)
	return c
}

// Name returns "local"
func (c *LocalClient) Name() string {
	return "local"
}

// Sample advances the counter.
func (c *LocalClient) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	now := c.clock.Now().UTC()
	// Mix in the wall clock so that restarts without a persisted counter
	// still move forward.
	for {
		last := c.slot.Load()
		next := last + 1
		if floor := uint64(now.UnixNano()); floor > next {
			next = floor
		}
		if c.slot.CompareAndSwap(last, next) {
			return Sample{Slot: next, Time: now}, nil
		}
	}
}

// Last returns the most recently issued slot
func (c *LocalClient) Last() uint64 {
	return c.slot.Load()
}

// ValidateAddress checks that s is a base58-encoded ed25519 public key.
func ValidateAddress(s string) error {
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, s)
	}
	return nil
}
