package mint

import (
	"github.com/SparrowTek/cashu-mint/api/cashu"
)

// LatestSeedByUnit reports, for every unit present in seeds, whether its
// highest-numbered seed version is marked active. A rotation that created a
// new seed version without flipping it active leaves the unit with no
// signing keys, so callers use this to flag that condition early.
type LatestSeedByUnit struct {
	Version int
	Active  bool
	Unit    cashu.Unit
}

// FindInactiveLatestSeeds groups seeds by unit, keeps only the latest
// version of each, and returns the ones that are not active.
func FindInactiveLatestSeeds(seeds []cashu.Seed) ([]LatestSeedByUnit, error) {
	latest := make(map[cashu.Unit]LatestSeedByUnit, len(seeds))

	for _, seed := range seeds {
		unit, err := cashu.UnitFromString(seed.Unit)
		if err != nil {
			return nil, err
		}
		if seed.Version > latest[unit].Version {
			latest[unit] = LatestSeedByUnit{
				Version: seed.Version,
				Active:  seed.Active,
				Unit:    unit,
			}
		}
	}

	inactive := make([]LatestSeedByUnit, 0)
	for _, entry := range latest {
		if !entry.Active {
			inactive = append(inactive, entry)
		}
	}

	return inactive, nil
}
