package uat

import "fmt"

// AgentID identifies an onboarded agent. IDs are assigned densely and
// monotonically starting at 0, at the current agent count, exactly as spec
// section 4.5 describes — so 0 is a valid agent (the first onboarded) and
// cannot double as a sentinel the way it would in a 1-based scheme.
type AgentID uint64

// NoAgent is the sentinel AgentID meaning "no owner" or "no bidder yet". It
// is the maximum uint64 value rather than 0, since 0 is the first agent's
// real id.
const NoAgent AgentID = ^AgentID(0)

// Value is the currency bids and asks are denominated in.
type Value = float64

type statusKind uint8

// A privateStatus is only ever constructed by freshListing (statusOnSale),
// then moves to statusUsed when a permit is claimed and back to statusOnSale
// when its owner relists it; out-of-window permits
// never get a privateStatus at all — Book.entry reports them as the second
// (bool) return rather than through this tag, and Book.Peek constructs
// Snapshot{Kind: SnapshotOutOfLimits} directly for them.
const (
	statusOnSale statusKind = iota
	statusUsed
)

// privateStatus is the engine-internal, full state of a live permit. Exactly
// one of the statusKind arms applies at any instant — enforced structurally
// by having a single kind tag rather than a union of pointers.
type privateStatus struct {
	kind statusKind

	// Valid when kind == statusOnSale.
	owner         AgentID // NoAgent means never sold (first issuance)
	minValue      Value
	highestBidder AgentID // NoAgent means uncontested this listing
	highestBid    Value

	// Valid when kind == statusUsed.
	usedOwner AgentID
}

func freshListing() *privateStatus {
	return &privateStatus{kind: statusOnSale, owner: NoAgent, minValue: 0, highestBidder: NoAgent, highestBid: 0}
}

// PublicKind is the projection of privateStatus visible to a querying agent.
type PublicKind uint8

const (
	Unavailable PublicKind = iota
	Available
	Owned
)

// PublicStatus is what an agent sees when it queries a permit.
type PublicStatus struct {
	Kind     PublicKind
	MinValue Value // meaningful only when Kind == Available
}

// SnapshotKind mirrors the private status tag for read-only observers.
type SnapshotKind uint8

const (
	SnapshotOutOfLimits SnapshotKind = iota
	SnapshotOnSale
	SnapshotUsed
)

// Snapshot is the read-only projection of privateStatus exposed to status
// observers (which see the full internal state, not the per-agent public
// projection agents get from Query).
type Snapshot struct {
	Kind          SnapshotKind
	Owner         *AgentID // nil under SnapshotOnSale means never sold
	MinValue      Value    // meaningful under SnapshotOnSale
	HighestBidder *AgentID // meaningful under SnapshotOnSale; nil means uncontested
	HighestBid    Value    // meaningful under SnapshotOnSale
}

func (s *privateStatus) snapshot() Snapshot {
	switch s.kind {
	case statusOnSale:
		var owner, bidder *AgentID
		if s.owner != NoAgent {
			o := s.owner
			owner = &o
		}
		if s.highestBidder != NoAgent {
			b := s.highestBidder
			bidder = &b
		}
		return Snapshot{Kind: SnapshotOnSale, Owner: owner, MinValue: s.minValue, HighestBidder: bidder, HighestBid: s.highestBid}
	case statusUsed:
		o := s.usedOwner
		return Snapshot{Kind: SnapshotUsed, Owner: &o}
	default:
		panic(InvariantError{fmt.Sprintf("privateStatus has unknown kind %d", s.kind)})
	}
}
