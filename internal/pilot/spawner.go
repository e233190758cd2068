package pilot

import (
	"math"
	"math/rand"

	"uatsim/internal/region"
	"uatsim/internal/uat"
)

// SpawnConfig controls the population a Spawner generates, mirroring the
// teacher's SpawnConfig for initial-population generation.
type SpawnConfig struct {
	// ArrivalsPerTick is how many new flyers appear each tick, before
	// Poisson-ish jitter.
	ArrivalsPerTick float64
	// TradersPerTick is how many new opportunistic traders appear each
	// tick.
	TradersPerTick float64
	// LeadTicks is how far into the future a freshly spawned flyer's
	// destination permit is offset from the current tick.
	LeadTicks uint64
	// BudgetBase and BudgetSpread control a flyer's willingness to pay:
	// budget = BudgetBase + U(0, BudgetSpread).
	BudgetBase   uat.Value
	BudgetSpread uat.Value
	// TraderMarkup is the resale markup opportunistic traders apply.
	TraderMarkup float64
	// TraderHorizon is how many ticks ahead a trader watches for
	// underpriced permits.
	TraderHorizon uint64
}

// DefaultSpawnConfig returns a reasonable starting configuration.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		ArrivalsPerTick: 2.0,
		TradersPerTick:  0.3,
		LeadTicks:       3,
		BudgetBase:      2,
		BudgetSpread:    8,
		TraderMarkup:    1.4,
		TraderHorizon:   5,
	}
}

// Spawner produces new agents each tick, adapted from the teacher's
// agents.Spawner: a seeded rng plus a config, called once per tick as a
// uat.Factory.
type Spawner struct {
	rng *rand.Rand
	cfg SpawnConfig
}

// NewSpawner creates a spawner seeded independently of the engine's own
// per-tick seed stream, the way the teacher offsets its spawner's rng from
// the world seed.
func NewSpawner(seed int64, cfg SpawnConfig) *Spawner {
	return &Spawner{rng: rand.New(rand.NewSource(seed + 700)), cfg: cfg}
}

// Factory adapts the spawner to uat.Factory.
func (s *Spawner) Factory(t uint64, air region.Airspace, seed int64) []uat.Agent {
	regions := air.Regions()
	if len(regions) == 0 {
		return nil
	}

	var out []uat.Agent
	for i := 0; i < s.poisson(s.cfg.ArrivalsPerTick); i++ {
		out = append(out, s.spawnFlyer(t, regions))
	}
	for i := 0; i < s.poisson(s.cfg.TradersPerTick); i++ {
		out = append(out, s.spawnTrader(t, regions))
	}
	return out
}

func (s *Spawner) spawnFlyer(t uint64, regions []region.Region) uat.Agent {
	dest := regions[s.rng.Intn(len(regions))]
	at := t + s.cfg.LeadTicks
	budget := s.cfg.BudgetBase + uat.Value(s.rng.Float64())*s.cfg.BudgetSpread
	return NewCautiousFlyer(dest, at, budget, int(s.cfg.LeadTicks)+2)
}

func (s *Spawner) spawnTrader(t uint64, regions []region.Region) uat.Agent {
	n := 1 + s.rng.Intn(3)
	watches := make([]Watch, 0, n)
	for i := 0; i < n; i++ {
		r := regions[s.rng.Intn(len(regions))]
		watches = append(watches, Watch{Region: r, Tick: t + 1 + uint64(s.rng.Int63n(int64(s.cfg.TraderHorizon)+1))})
	}
	valuation := congestionValuation
	return NewOpportunisticTrader(watches, valuation, s.cfg.TraderMarkup, int(s.cfg.TraderHorizon)*3)
}

// poisson draws from a Poisson distribution with mean lambda using Knuth's
// method; fine for the small arrival rates this simulation uses.
func (s *Spawner) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= s.rng.Float64()
		if p <= limit {
			return k - 1
		}
	}
}

// congestionValuation is the default valuation function handed to
// opportunistic traders: a congested region is worth more to arbitrage,
// since flyers there are more likely to pay up for a permit later.
func congestionValuation(r region.Region) uat.Value {
	type congested interface{ Congestion() float64 }
	if c, ok := r.(congested); ok {
		return uat.Value(1 + c.Congestion()*10)
	}
	return 1
}
