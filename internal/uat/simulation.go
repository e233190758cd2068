// Simulation drives the per-tick auction/resale state machine:
// Onboarding -> Bidding -> Resolving -> Asking -> Retiring -> Advance.
// Organized as one method per phase, mirroring the teacher's split between
// engine.Simulation's per-layer tick methods (TickMinute/TickHour/TickDay)
// and engine.Engine's outer driving loop (Run/step).
package uat

import (
	"log/slog"
	"math/rand"

	"uatsim/internal/region"
)

// SeedSource supplies one fresh int64 per call. The default is a
// math/rand-seeded deterministic sequence; a caller may swap in a different
// source via SimulationOpts.Seeds — the only supported knob on the
// reproducibility guarantee (see package uatsim/internal/seedsource).
type SeedSource interface {
	Next() int64
}

type defaultSeeds struct {
	rng *rand.Rand
}

func (d *defaultSeeds) Next() int64 {
	return d.rng.Int63()
}

// StopCriteria decides, after each tick's Advance, whether the outer loop
// should terminate. t and activeCount reflect state after the advance.
type StopCriteria interface {
	ShouldStop(t uint64, activeCount int) bool
}

// NoAgents stops as soon as the active set is empty after a tick. This is
// the default stop criterion.
type NoAgents struct{}

func (NoAgents) ShouldStop(_ uint64, activeCount int) bool { return activeCount == 0 }

// TimeThreshold stops once the clock has advanced past TMax.
type TimeThreshold struct {
	TMax uint64
}

func (c TimeThreshold) ShouldStop(t uint64, _ int) bool { return t > c.TMax }

// TradeRecord describes one resolved trade, emitted to TradeCallback
// immediately before the buyer and the displaced owner (if any) are notified.
type TradeRecord struct {
	T          uint64
	Seller     *AgentID // nil when the permit had never been sold before
	Buyer      AgentID
	Region     region.Region
	PermitTime uint64
	Price      Value
}

// SimulationOpts configures a Simulate run. The zero value is a legal
// configuration: unbounded time window, NoAgents stop criterion, no
// observers, deterministic seeding from the seed passed to Simulate.
type SimulationOpts struct {
	// TimeWindow bounds how far beyond t0 a permit remains reachable. nil
	// means unbounded.
	TimeWindow *uint64

	// StopCriteria decides when the outer loop terminates. Defaults to
	// NoAgents{}.
	StopCriteria StopCriteria

	// StatusCallback, if set, is invoked once per tick before onboarding
	// with (t0, airspace, read-only book). Must not mutate engine state.
	StatusCallback func(t uint64, air region.Airspace, book ReadOnlyBook)

	// TradeCallback, if set, is invoked once per resolved trade. Must not
	// mutate engine state.
	TradeCallback func(TradeRecord)

	// Seeds overrides the default deterministic seed source. Supplying a
	// non-reproducible source (see seedsource.TrueRandom) breaks the
	// determinism property in spec section 8 — do this deliberately.
	Seeds SeedSource
}

// simulation is the driver's mutable state for one run.
type simulation struct {
	book   *Book
	agents map[AgentID]Agent
	active []AgentID
	nextID AgentID
	seeds  SeedSource
	opts   SimulationOpts
}

type pendingAsk struct {
	permit region.Permit
	id     AgentID
	value  Value
}

// Simulate runs factory/airspace/opts to completion. It returns nil when the
// stop criterion fires normally. A book invariant violation panics with
// InvariantError rather than returning an error — see spec section 7.
// Simulate does not recover that panic, and neither does cmd/uatsim; a
// caller that wants a clean shutdown around it must recover it itself.
func Simulate(factory Factory, air region.Airspace, seed int64, opts SimulationOpts) error {
	if opts.StopCriteria == nil {
		opts.StopCriteria = NoAgents{}
	}
	seeds := opts.Seeds
	if seeds == nil {
		seeds = &defaultSeeds{rng: rand.New(rand.NewSource(seed))}
	}

	sim := &simulation{
		book:   newBook(0, opts.TimeWindow),
		agents: make(map[AgentID]Agent),
		seeds:  seeds,
		opts:   opts,
	}

	for {
		t := sim.book.t0

		if opts.StatusCallback != nil {
			opts.StatusCallback(t, air, sim.book)
		}

		sim.onboard(t, factory, air, seeds.Next())

		contested := sim.runBidPhase(t)
		sim.resolveBids(t, contested)

		asks := sim.runAskPhase(t)
		sim.applyAsks(asks)

		sim.retire(t)

		slog.Debug("tick complete", "t", t, "active", len(sim.active), "contested", len(contested))

		sim.book.advance()

		if opts.StopCriteria.ShouldStop(sim.book.t0, len(sim.active)) {
			return nil
		}
	}
}

func (s *simulation) onboard(t uint64, factory Factory, air region.Airspace, seed int64) {
	fresh := factory(t, air, seed)
	for _, a := range fresh {
		id := s.nextID
		s.nextID++
		s.agents[id] = a
		s.active = append(s.active, id)
	}
}

// snapshotActive returns the active set in current order — a stable view for a
// phase to iterate even though onboard/retire mutate s.active between
// phases.
func (s *simulation) snapshotActive() []AgentID {
	order := make([]AgentID, len(s.active))
	copy(order, s.active)
	return order
}

func (s *simulation) queryFor(id AgentID) QueryFunc {
	return func(r region.Region, t uint64) PublicStatus {
		if t < s.book.t0 {
			return PublicStatus{Kind: Unavailable}
		}
		st, live := s.book.entry(region.Permit{R: r, T: t})
		if !live {
			return PublicStatus{Kind: Unavailable}
		}
		switch st.kind {
		case statusUsed:
			if st.usedOwner == id {
				return PublicStatus{Kind: Owned}
			}
			return PublicStatus{Kind: Unavailable}
		case statusOnSale:
			if st.owner == id {
				return PublicStatus{Kind: Unavailable}
			}
			return PublicStatus{Kind: Available, MinValue: st.minValue}
		default:
			return PublicStatus{Kind: Unavailable}
		}
	}
}

// runBidPhase drives every active agent's BidPhase and returns the permits
// that became contested this tick, in first-touch order — appended only the
// moment a bid raises highest_bidder from None to a concrete agent, so each
// contested permit is resolved exactly once regardless of how many further
// bids it draws this tick.
func (s *simulation) runBidPhase(t uint64) []region.Permit {
	var contested []region.Permit

	for _, id := range s.snapshotActive() {
		agent := s.agents[id]
		bidderID := id

		bid := func(r region.Region, tp uint64, v Value) bool {
			if tp < s.book.t0 {
				return false
			}
			p := region.Permit{R: r, T: tp}
			st, live := s.book.entry(p)
			if !live || st.kind != statusOnSale {
				return false
			}
			if !(v > st.minValue && v > st.highestBid) {
				return false
			}
			firstTouch := st.highestBidder == NoAgent
			st.highestBidder = bidderID
			st.highestBid = v
			if firstTouch {
				contested = append(contested, p)
			}
			return true
		}

		agent.BidPhase(t, bid, s.queryFor(id), s.seeds.Next())
	}

	return contested
}

// resolveBids settles every contested permit: snapshot its winner, emit a
// trade record, notify the buyer (and the displaced owner, if any), then
// transfer ownership.
func (s *simulation) resolveBids(t uint64, contested []region.Permit) {
	for _, p := range contested {
		st, live := s.book.entry(p)
		if !live || st.kind != statusOnSale {
			panic(InvariantError{"contested permit is no longer OnSale at resolution"})
		}

		owner := st.owner
		buyer := st.highestBidder
		price := st.highestBid

		if s.opts.TradeCallback != nil {
			var seller *AgentID
			if owner != NoAgent {
				o := owner
				seller = &o
			}
			s.opts.TradeCallback(TradeRecord{T: t, Seller: seller, Buyer: buyer, Region: p.R, PermitTime: p.T, Price: price})
		}

		s.agents[buyer].OnBought(p.R, p.T, price)
		if owner != NoAgent {
			if seller, ok := s.agents[owner]; ok {
				seller.OnSold(p.R, p.T, price)
			}
		}

		st.kind = statusUsed
		st.usedOwner = buyer
	}
}

// runAskPhase drives every still-active agent's AskPhase. Acceptances are
// buffered into asks rather than applied immediately, so an agent can never
// observe its own ask within its own ask phase.
func (s *simulation) runAskPhase(t uint64) []pendingAsk {
	var asks []pendingAsk

	for _, id := range s.snapshotActive() {
		agent := s.agents[id]
		askerID := id

		ask := func(r region.Region, tp uint64, v Value) bool {
			if tp < s.book.t0 {
				return false
			}
			p := region.Permit{R: r, T: tp}
			st, live := s.book.entry(p)
			if !live || st.kind != statusUsed || st.usedOwner != askerID {
				return false
			}
			asks = append(asks, pendingAsk{permit: p, id: askerID, value: v})
			return true
		}

		agent.AskPhase(t, ask, s.queryFor(id), s.seeds.Next())
	}

	return asks
}

// applyAsks relists every accepted ask, in the order accepted.
func (s *simulation) applyAsks(asks []pendingAsk) {
	for _, a := range asks {
		st, live := s.book.entry(a.permit)
		if !live {
			continue
		}
		st.kind = statusOnSale
		st.owner = a.id
		st.minValue = a.value
		st.highestBidder = NoAgent
		st.highestBid = 0
	}
}

// retire polls Stop for every active agent, notifies OnFinished for those
// that retire, and keeps the rest active.
func (s *simulation) retire(t uint64) {
	kept := s.active[:0:0]
	for _, id := range s.active {
		agent := s.agents[id]
		if agent.Stop(t, s.seeds.Next()) {
			agent.OnFinished(id, t)
			continue
		}
		kept = append(kept, id)
	}
	s.active = kept
}
