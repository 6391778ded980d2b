package signerpool

import (
	"context"
	"math/rand"
	"sync/atomic"

	relerrors "github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// Pool selects a Signer for each request according to an operator-
// configured strategy, and exposes every entry for the balance monitor.
type Pool struct {
	entries  []Entry
	strategy relayconfig.SelectionStrategy

	roundRobinCounter atomic.Uint64
	weightedTotal     uint32
}

// NewPool builds a Pool from already-constructed entries. Construction
// (resolving env vars, contacting HSM backends) is kept separate from
// selection so tests can exercise Select with fakes.
func NewPool(strategy relayconfig.SelectionStrategy, entries []Entry) (*Pool, error) {
	if len(entries) == 0 {
		return nil, relerrors.InvalidConfig("signer pool has no entries")
	}
	var totalWeight uint32
	for _, e := range entries {
		w := e.Weight
		if w == 0 {
			w = 1
		}
		totalWeight += w
	}
	return &Pool{entries: entries, strategy: strategy, weightedTotal: totalWeight}, nil
}

// Entries returns every configured entry, for the balance monitor and
// diagnostics.
func (p *Pool) Entries() []Entry {
	return p.entries
}

// Select picks one Signer according to the pool's configured strategy.
func (p *Pool) Select(_ context.Context) (Signer, error) {
	switch p.strategy {
	case relayconfig.StrategyRandom:
		return p.entries[rand.Intn(len(p.entries))].Signer, nil
	case relayconfig.StrategyWeighted:
		return p.selectWeighted(), nil
	case relayconfig.StrategyRoundRobin:
		fallthrough
	default:
		idx := p.roundRobinCounter.Add(1) - 1
		return p.entries[idx%uint64(len(p.entries))].Signer, nil
	}
}

func (p *Pool) selectWeighted() Signer {
	if p.weightedTotal == 0 {
		return p.entries[0].Signer
	}
	target := uint32(rand.Intn(int(p.weightedTotal)))
	var cumulative uint32
	for _, e := range p.entries {
		w := e.Weight
		if w == 0 {
			w = 1
		}
		cumulative += w
		if target < cumulative {
			return e.Signer
		}
	}
	return p.entries[len(p.entries)-1].Signer
}

// ByName returns the entry registered under name, for the bundle
// processor's explicit-signer selection path, if any.
func (p *Pool) ByName(name string) (Signer, bool) {
	for _, e := range p.entries {
		if e.Name == name {
			return e.Signer, true
		}
	}
	return nil, false
}
