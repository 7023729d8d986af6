package listing

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Generator fabricates placeholder listings. It carries no real information.
//
// A Generator is not safe for concurrent use; each run owns its own.
type Generator struct {
	pools Pools
	rnd   *rand.Rand
}

// NewGenerator validates pools and returns a generator. A nil src seeds from
// the clock, so output is not reproducible across runs.
func NewGenerator(pools Pools, src rand.Source) (*Generator, error) {
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}
	return &Generator{pools: pools, rnd: rand.New(src)}, nil
}

// Sample returns between 0 and Pools.MaxPerRegion listings for regionName.
func (g *Generator) Sample(regionName string) []Listing {
	n := g.rnd.IntN(g.pools.MaxPerRegion + 1)
	out := make([]Listing, 0, n)
	for range n {
		out = append(out, Listing{
			Price:    pick(g.rnd, g.pools.Prices),
			Area:     fmt.Sprintf("%d평(전용)", pick(g.rnd, g.pools.Areas)),
			Rooms:    pick(g.rnd, g.pools.Rooms),
			Location: regionName + " " + pick(g.rnd, g.pools.Locations),
			Type:     pick(g.rnd, g.pools.Types),
			Floor:    fmt.Sprintf("%d층/%d층", between(g.rnd, g.pools.Floor), between(g.rnd, g.pools.TotalFloor)),
			Source:   pick(g.rnd, g.pools.Sources),
		})
	}
	return out
}

func pick[T any](r *rand.Rand, vals []T) T {
	return vals[r.IntN(len(vals))]
}

func between(r *rand.Rand, rg Range) int {
	return rg.Min + r.IntN(rg.Max-rg.Min+1)
}
