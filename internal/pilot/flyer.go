// Package pilot supplies example Agent policies. CautiousFlyer is adapted
// from the teacher's Tier0Decide rule-based decision loop (internal/agents/
// behavior.go): evaluate one condition, take one action, no lookahead.
// OpportunisticTrader (trader.go) is adapted from the teacher's
// merchant arbitrage loop (internal/engine/market.go's resolveMerchantTrade),
// retargeted from settlement-to-settlement goods trading to permit resale.
package pilot

import (
	"uatsim/internal/region"
	"uatsim/internal/uat"
)

// CautiousFlyer wants exactly one permit — a destination region at a
// specific tick — and is willing to pay up to Budget for it. It never
// resells and never bids again once it owns the permit.
type CautiousFlyer struct {
	Dest      region.Region
	At        uint64
	Budget    uat.Value
	Increment uat.Value // how far above the listed floor to offer each try
	GiveUpAt  int        // unsuccessful ticks tolerated before abandoning the flight

	owns    bool
	waited  int
}

// NewCautiousFlyer creates a flyer targeting (dest, at) willing to spend up
// to budget, giving up once more than giveUpAfter ticks pass without a
// purchase.
func NewCautiousFlyer(dest region.Region, at uint64, budget uat.Value, giveUpAfter int) *CautiousFlyer {
	return &CautiousFlyer{Dest: dest, At: at, Budget: budget, Increment: 1, GiveUpAt: giveUpAfter}
}

func (f *CautiousFlyer) BidPhase(t uint64, bid uat.BidFunc, query uat.QueryFunc, _ int64) {
	if f.owns || t > f.At {
		return
	}
	status := query(f.Dest, f.At)
	if status.Kind != uat.Available {
		return
	}
	offer := status.MinValue + f.Increment
	if offer > f.Budget {
		return
	}
	bid(f.Dest, f.At, offer)
}

// AskPhase is a no-op: a cautious flyer never resells.
func (f *CautiousFlyer) AskPhase(uint64, uat.AskFunc, uat.QueryFunc, int64) {}

func (f *CautiousFlyer) OnBought(region.Region, uint64, uat.Value) {
	f.owns = true
}

func (f *CautiousFlyer) OnSold(region.Region, uint64, uat.Value) {
	// A cautious flyer never lists a permit, so it should never be
	// displaced. If it happens (e.g. a future ask API misuse), fall back to
	// trying again.
	f.owns = false
}

func (f *CautiousFlyer) OnFinished(uat.AgentID, uint64) {}

// Stop retires the flyer once it owns its permit, once its window has
// passed, or once more than GiveUpAt ticks have passed without success.
func (f *CautiousFlyer) Stop(t uint64, _ int64) bool {
	if f.owns {
		return true
	}
	f.waited++
	return t > f.At || f.waited > f.GiveUpAt
}
