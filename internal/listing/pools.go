package listing

import (
	"errors"
	"fmt"
	"strings"
)

// Range is an inclusive integer range.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) valid() bool { return r.Min <= r.Max }

// Pools are the value sets the generator samples from.
type Pools struct {
	Prices    []string `json:"prices"`
	Areas     []int    `json:"areas"` // pyeong, rendered "{n}평(전용)"
	Rooms     []string `json:"rooms"`
	Locations []string `json:"locations"` // suffixes appended to the region name
	Types     []string `json:"types"`
	Sources   []string `json:"sources"`

	Floor      Range `json:"floor"`       // unit floor
	TotalFloor Range `json:"total_floor"` // building height

	// MaxPerRegion bounds the per-region count; counts are uniform in [0, MaxPerRegion].
	MaxPerRegion int `json:"max_per_region"`
}

// DefaultPools returns the pools used when no override is configured.
func DefaultPools() Pools {
	return Pools{
		Prices: []string{
			"1억원",
			"1억 1000만원", "1억 2000만원", "1억 3000만원", "1억 4000만원", "1억 5000만원",
			"1억 6000만원", "1억 7000만원", "1억 8000만원", "1억 9000만원",
			"1억 1500만원", "1억 2500만원", "1억 3500만원", "1억 4500만원", "1억 5500만원",
			"1억 6500만원", "1억 7500만원", "1억 8500만원", "1억 9500만원",
			"1억 1200만원", "1억 1800만원", "1억 2300만원", "1억 2800만원", "1억 3200만원",
			"1억 3800만원", "1억 4200만원", "1억 4800만원", "1억 5200만원", "1억 5800만원",
		},
		Areas:        []int{18, 19, 20, 21, 22, 23, 24},
		Rooms:        []string{"방3개/화장실2개"},
		Locations:    []string{"중앙동", "신도시", "구시가지", "역세권", "아파트촌", "단독주택가"},
		Types:        []string{"빌라", "다세대", "연립"},
		Sources:      []string{"네이버부동산", "직방", "다방", "부동산114", "원룸원"},
		Floor:        Range{Min: 1, Max: 4},
		TotalFloor:   Range{Min: 2, Max: 5},
		MaxPerRegion: 6,
	}
}

// Validate rejects pools the generator cannot sample from.
func (p Pools) Validate() error {
	var errs []error
	empty := func(name string, n int) {
		if n == 0 {
			errs = append(errs, fmt.Errorf("pools.%s: must not be empty", name))
		}
	}
	empty("prices", len(p.Prices))
	empty("areas", len(p.Areas))
	empty("rooms", len(p.Rooms))
	empty("locations", len(p.Locations))
	empty("types", len(p.Types))
	empty("sources", len(p.Sources))

	blank := func(name string, vals []string) {
		for i, v := range vals {
			if strings.TrimSpace(v) == "" {
				errs = append(errs, fmt.Errorf("pools.%s[%d]: blank value", name, i))
			}
		}
	}
	blank("prices", p.Prices)
	blank("rooms", p.Rooms)
	blank("locations", p.Locations)
	blank("types", p.Types)
	blank("sources", p.Sources)
	for i, a := range p.Areas {
		if a <= 0 {
			errs = append(errs, fmt.Errorf("pools.areas[%d]: must be > 0", i))
		}
	}
	if !p.Floor.valid() || p.Floor.Min < 1 {
		errs = append(errs, fmt.Errorf("pools.floor: invalid range %d..%d", p.Floor.Min, p.Floor.Max))
	}
	if !p.TotalFloor.valid() || p.TotalFloor.Min < 1 {
		errs = append(errs, fmt.Errorf("pools.total_floor: invalid range %d..%d", p.TotalFloor.Min, p.TotalFloor.Max))
	}
	if p.MaxPerRegion < 0 {
		errs = append(errs, errors.New("pools.max_per_region: must be >= 0"))
	}
	return errors.Join(errs...)
}
