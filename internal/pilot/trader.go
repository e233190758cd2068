package pilot

import (
	"uatsim/internal/region"
	"uatsim/internal/uat"
)

// Watch names a permit an OpportunisticTrader is keeping an eye on.
type Watch struct {
	Region region.Region
	Tick   uint64
}

// OpportunisticTrader buys permits it judges underpriced relative to its own
// valuation of the destination region, holds them, and lists them for resale
// once it owns them — adapted from the teacher's resolveMerchantTrade /
// sellMerchantCargo buy-low-sell-high loop, with "cargo" replaced by permits
// and "settlement price" replaced by Valuation(region).
type OpportunisticTrader struct {
	Watches   []Watch
	Valuation func(region.Region) uat.Value
	Markup    float64 // resale ask = purchase price * Markup
	Increment uat.Value
	MaxTicks  int

	holdings map[region.Permit]uat.Value
	ticks    int
}

// NewOpportunisticTrader creates a trader watching the given permits,
// valuing a region via valuation, asking markup times its purchase price on
// resale, and retiring after maxTicks ticks.
func NewOpportunisticTrader(watches []Watch, valuation func(region.Region) uat.Value, markup float64, maxTicks int) *OpportunisticTrader {
	return &OpportunisticTrader{
		Watches:   watches,
		Valuation: valuation,
		Markup:    markup,
		Increment: 1,
		MaxTicks:  maxTicks,
		holdings:  make(map[region.Permit]uat.Value),
	}
}

func (o *OpportunisticTrader) BidPhase(t uint64, bid uat.BidFunc, query uat.QueryFunc, _ int64) {
	for _, w := range o.Watches {
		if w.Tick < t {
			continue
		}
		status := query(w.Region, w.Tick)
		if status.Kind != uat.Available {
			continue
		}
		value := o.Valuation(w.Region)
		offer := status.MinValue + o.Increment
		if offer >= value {
			// Not enough margin left between the floor and what the
			// destination is worth to us — pass.
			continue
		}
		bid(w.Region, w.Tick, offer)
	}
}

func (o *OpportunisticTrader) AskPhase(_ uint64, ask uat.AskFunc, query uat.QueryFunc, _ int64) {
	for p, cost := range o.holdings {
		status := query(p.R, p.T)
		if status.Kind != uat.Owned {
			continue
		}
		askPrice := cost * uat.Value(o.Markup)
		if ask(p.R, p.T, askPrice) {
			delete(o.holdings, p)
		}
	}
}

func (o *OpportunisticTrader) OnBought(r region.Region, t uint64, price uat.Value) {
	o.holdings[region.Permit{R: r, T: t}] = price
}

func (o *OpportunisticTrader) OnSold(r region.Region, t uint64, _ uat.Value) {
	delete(o.holdings, region.Permit{R: r, T: t})
}

func (o *OpportunisticTrader) OnFinished(uat.AgentID, uint64) {}

// Stop retires the trader after MaxTicks, regardless of open positions — an
// unsold permit simply expires out of the book when its tick rolls off the
// window.
func (o *OpportunisticTrader) Stop(uint64, int64) bool {
	o.ticks++
	return o.ticks > o.MaxTicks
}
