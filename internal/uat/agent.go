package uat

import "uatsim/internal/region"

// BidFunc lets an agent bid v on the permit (r, t'). It accepts iff the
// permit's private status is OnSale, v is strictly above min_value, and v is
// strictly above the current highest bid; on acceptance it records (id, v)
// as the new highest bidder. t' < the current tick, or beyond the configured
// time window, always rejects.
type BidFunc func(r region.Region, t uint64, v Value) bool

// AskFunc lets an agent list a permit (r, t') it owns at minimum value v. It
// accepts iff the permit's private status is Used and owned by the calling
// agent; on acceptance the permit re-lists as OnSale with no highest bidder.
// The write is deferred until every agent's ask phase has run, so an agent
// never observes its own ask within its own ask phase.
type AskFunc func(r region.Region, t uint64, v Value) bool

// QueryFunc returns the public status of (r, t') as seen by the calling
// agent.
type QueryFunc func(r region.Region, t uint64) PublicStatus

// Agent is the polymorphic actor the driver onboards, drives through the
// bid/ask phases, and eventually retires. The engine owns each Agent
// instance for the simulation's lifetime; implementations must remain valid
// for as long as they are reachable from the active set.
type Agent interface {
	// BidPhase runs once per tick for every active agent, in onboarding
	// order. The agent may call bid any number of times for t' >= t.
	BidPhase(t uint64, bid BidFunc, query QueryFunc, seed int64)

	// AskPhase runs once per tick, after bid resolution, for every agent
	// still active. The agent may call ask to relist permits it owns.
	AskPhase(t uint64, ask AskFunc, query QueryFunc, seed int64)

	// OnBought fires once, immediately after winning a bid resolution, before
	// the next phase observes the sale.
	OnBought(r region.Region, t uint64, price Value)

	// OnSold fires once, immediately after being displaced as owner, before
	// the next phase observes the sale.
	OnSold(r region.Region, t uint64, price Value)

	// OnFinished fires once, at the tick of retirement. It is terminal: the
	// agent is not consulted again afterward.
	OnFinished(id AgentID, t uint64)

	// Stop is polled once per tick, after the ask phase. Returning true
	// retires the agent — this is the sole retirement signal; bid/ask phases
	// carry no liveness return of their own.
	Stop(t uint64, seed int64) bool
}

// Factory produces zero or more new agents to onboard at the start of tick
// t. It receives the airspace so it can shape agents around specific
// regions, and a seed for whatever randomness it needs.
type Factory func(t uint64, air region.Airspace, seed int64) []Agent
