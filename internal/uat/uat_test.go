package uat

import (
	"testing"

	"uatsim/internal/region"
)

// fixedRegion is a minimal, comparable Region used across engine tests. Two
// fixedRegion values with the same id are Go-== equal, satisfying the
// map-key contract Book relies on.
type fixedRegion struct{ id int }

func (r fixedRegion) Eq(o region.Region) bool { return r == o }
func (r fixedRegion) Hash() uint64            { return uint64(r.id) }
func (r fixedRegion) AdjacentRegions() []region.Region { return nil }
func (r fixedRegion) Distance(region.Region) uint      { return 0 }
func (r fixedRegion) HeuristicDistance(region.Region) float64 { return 0 }
func (r fixedRegion) ShortestPath(region.Region, int64) []region.Region { return nil }
func (r fixedRegion) Turn(before, to region.Region) bool { return false }
func (r fixedRegion) Climb(to region.Region) bool        { return false }

type fixedAirspace struct{ regions []region.Region }

func (a fixedAirspace) Regions() []region.Region { return a.regions }

// scriptedAgent lets a test drive exact bid/ask sequences and observe every
// callback the engine fires.
type scriptedAgent struct {
	bids     map[uint64][]struct {
		r region.Region
		t uint64
		v Value
	}
	stopAfter int

	ticksSeen int
	bought    []Value
	sold      []Value
	finished  bool
}

func (a *scriptedAgent) BidPhase(t uint64, bid BidFunc, query QueryFunc, _ int64) {
	for _, b := range a.bids[t] {
		bid(b.r, b.t, b.v)
	}
}
func (a *scriptedAgent) AskPhase(uint64, AskFunc, QueryFunc, int64) {}
func (a *scriptedAgent) OnBought(_ region.Region, _ uint64, price Value) {
	a.bought = append(a.bought, price)
}
func (a *scriptedAgent) OnSold(_ region.Region, _ uint64, price Value) {
	a.sold = append(a.sold, price)
}
func (a *scriptedAgent) OnFinished(AgentID, uint64) { a.finished = true }
func (a *scriptedAgent) Stop(t uint64, _ int64) bool {
	a.ticksSeen++
	return a.ticksSeen > a.stopAfter
}

func TestSimulate_EmptyRunStopsImmediately(t *testing.T) {
	air := fixedAirspace{}
	factory := func(uint64, region.Airspace, int64) []Agent { return nil }

	err := Simulate(factory, air, 1, SimulationOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSimulate_SingleBidderMonopoly(t *testing.T) {
	r := fixedRegion{id: 1}
	air := fixedAirspace{regions: []region.Region{r}}

	winner := &scriptedAgent{
		bids: map[uint64][]struct {
			r region.Region
			t uint64
			v Value
		}{
			0: {{r: r, t: 0, v: 1}},
		},
		stopAfter: 0,
	}

	onboarded := false
	factory := func(t uint64, _ region.Airspace, _ int64) []Agent {
		if t == 0 && !onboarded {
			onboarded = true
			return []Agent{winner}
		}
		return nil
	}

	if err := Simulate(factory, air, 1, SimulationOpts{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(winner.bought) != 1 || winner.bought[0] != 1 {
		t.Fatalf("expected a single win at price 1, got %v", winner.bought)
	}
	if !winner.finished {
		t.Fatalf("expected agent to be retired")
	}
}

func TestSimulate_TwoBidderContestGoesToHighestBid(t *testing.T) {
	r := fixedRegion{id: 1}
	air := fixedAirspace{regions: []region.Region{r}}

	type bidSpec = struct {
		r region.Region
		t uint64
		v Value
	}

	low := &scriptedAgent{
		bids:      map[uint64][]bidSpec{0: {{r: r, t: 0, v: 2}}},
		stopAfter: 0,
	}
	high := &scriptedAgent{
		bids:      map[uint64][]bidSpec{0: {{r: r, t: 0, v: 5}}},
		stopAfter: 0,
	}

	onboarded := false
	factory := func(t uint64, _ region.Airspace, _ int64) []Agent {
		if t == 0 && !onboarded {
			onboarded = true
			return []Agent{low, high}
		}
		return nil
	}

	if err := Simulate(factory, air, 1, SimulationOpts{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(high.bought) != 1 || high.bought[0] != 5 {
		t.Fatalf("expected high bidder to win at 5, got %v", high.bought)
	}
	if len(low.bought) != 0 {
		t.Fatalf("expected low bidder to lose, got %v", low.bought)
	}
}

func TestSimulate_TimeWindowRejectsOutOfRangeBid(t *testing.T) {
	r := fixedRegion{id: 1}
	air := fixedAirspace{regions: []region.Region{r}}
	window := uint64(2)

	type bidSpec = struct {
		r region.Region
		t uint64
		v Value
	}
	tooFar := &scriptedAgent{
		bids:      map[uint64][]bidSpec{0: {{r: r, t: 5, v: 1}}}, // 5 > t0(0)+window(2)
		stopAfter: 0,
	}

	onboarded := false
	factory := func(t uint64, _ region.Airspace, _ int64) []Agent {
		if t == 0 && !onboarded {
			onboarded = true
			return []Agent{tooFar}
		}
		return nil
	}

	if err := Simulate(factory, air, 1, SimulationOpts{TimeWindow: &window}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tooFar.bought) != 0 {
		t.Fatalf("expected out-of-window bid to be rejected, got %v", tooFar.bought)
	}
}

func TestSimulate_StopsAtTimeThreshold(t *testing.T) {
	air := fixedAirspace{}
	factory := func(uint64, region.Airspace, int64) []Agent { return nil }

	var lastTick uint64
	opts := SimulationOpts{
		StopCriteria: TimeThreshold{TMax: 3},
		StatusCallback: func(t uint64, _ region.Airspace, _ ReadOnlyBook) {
			lastTick = t
		},
	}

	if err := Simulate(factory, air, 1, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lastTick != 3 {
		t.Fatalf("expected the last observed tick to be TMax (3), got %d", lastTick)
	}
}

func TestSimulate_ResaleAfterPurchase(t *testing.T) {
	r := fixedRegion{id: 1}
	air := fixedAirspace{regions: []region.Region{r}}

	seller := &sellingAgent{r: r}
	buyer := &scriptedAgent{
		bids: map[uint64][]struct {
			r region.Region
			t uint64
			v Value
		}{
			1: {{r: r, t: 5, v: 11}},
		},
		stopAfter: 1,
	}

	onboardedSeller, onboardedBuyer := false, false
	factory := func(t uint64, _ region.Airspace, _ int64) []Agent {
		var out []Agent
		if t == 0 && !onboardedSeller {
			onboardedSeller = true
			out = append(out, seller)
		}
		if t == 0 && !onboardedBuyer {
			onboardedBuyer = true
			out = append(out, buyer)
		}
		return out
	}

	var trades []TradeRecord
	opts := SimulationOpts{
		TradeCallback: func(rec TradeRecord) { trades = append(trades, rec) },
	}
	if err := Simulate(factory, air, 1, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades (initial sale + resale), got %d: %+v", len(trades), trades)
	}
	if trades[0].Seller != nil {
		t.Fatalf("expected first sale to have no prior seller")
	}
	if trades[1].Seller == nil || *trades[1].Seller != trades[0].Buyer {
		t.Fatalf("expected resale seller to be the original buyer")
	}
}

// sellingAgent buys permit r@5 for 1, then immediately lists it for resale
// at 10 during its ask phase, then retires.
type sellingAgent struct {
	r        region.Region
	owns     bool
	stopNext bool
}

func (a *sellingAgent) BidPhase(t uint64, bid BidFunc, _ QueryFunc, _ int64) {
	if t == 0 && !a.owns {
		bid(a.r, 5, 1)
	}
}
func (a *sellingAgent) AskPhase(t uint64, ask AskFunc, _ QueryFunc, _ int64) {
	if a.owns {
		ask(a.r, 5, 10)
		a.stopNext = true
	}
}
func (a *sellingAgent) OnBought(region.Region, uint64, Value) { a.owns = true }
func (a *sellingAgent) OnSold(region.Region, uint64, Value)   { a.owns = false }
func (a *sellingAgent) OnFinished(AgentID, uint64)            {}
func (a *sellingAgent) Stop(uint64, int64) bool               { return a.stopNext }
