package chain

import (
	"context"
	"fmt"
	"sync/atomic"

	rpcclient "github.com/stellar/go/clients/rpcclient"
)

// TipSource reports the current checkpoint tip of the external ledger.
type TipSource interface {
	CurrentCheckpoint(ctx context.Context) (uint64, error)
}

// RPCTipSource reads the checkpoint tip from a Stellar RPC node's health
// endpoint. The latest closed ledger sequence is the checkpoint position.
type RPCTipSource struct {
	client *rpcclient.Client
}

// NewRPCTipSource creates a tip source over an RPC client.
func NewRPCTipSource(client *rpcclient.Client) *RPCTipSource {
	return &RPCTipSource{client: client}
}

// CurrentCheckpoint queries the RPC node for the latest ledger sequence.
func (s *RPCTipSource) CurrentCheckpoint(ctx context.Context) (uint64, error) {
	health, err := s.client.GetHealth(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get health from RPC: %w", err)
	}
	return uint64(health.LatestLedger), nil
}

// CachedTip is the last observed checkpoint tip, updated by the Watcher and
// read lock-free by whoever needs the current position (notably the embedded
// escrow program's CheckpointSource).
type CachedTip struct {
	tip atomic.Uint64
}

// NewCachedTip creates a CachedTip starting at initial.
func NewCachedTip(initial uint64) *CachedTip {
	c := &CachedTip{}
	c.tip.Store(initial)
	return c
}

// Current returns the last observed tip. Implements escrow.CheckpointSource.
func (c *CachedTip) Current() uint64 {
	return c.tip.Load()
}

// Set records a newly observed tip. The tip is monotonically increasing;
// stale observations are ignored.
func (c *CachedTip) Set(tip uint64) {
	for {
		current := c.tip.Load()
		if tip <= current {
			return
		}
		if c.tip.CompareAndSwap(current, tip) {
			return
		}
	}
}
