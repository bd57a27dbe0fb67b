package content

import (
	"fmt"

	world "cityloom.ai/internal/sim/world"
)

// Meta keys stamped on every built world.
const (
	MetaContentDigest = "content.digest"
	MetaContentPath   = "content.path"
)

// Build assembles a runnable world from a validated definition. The schema
// pins shapes and ranges; Build is where cross-references are resolved, so a
// definition that names an unknown district, faction, or seed fails here with
// the offending field named. Nothing is applied on error.
func Build(def *CityDefinition) (*world.World, error) {
	if err := checkReferences(def); err != nil {
		return nil, err
	}

	city := &world.City{
		ID:        def.City.ID,
		Name:      def.City.Name,
		Districts: make([]*world.District, 0, len(def.Districts)),
	}
	for _, dd := range def.Districts {
		d := &world.District{
			ID:         dd.ID,
			Name:       dd.Name,
			Population: dd.Population,
			Security:   dd.Security,
			Unrest:     dd.Unrest,
			Pollution:  dd.Pollution,
			Adjacent:   append([]string{}, dd.Adjacent...),
			Stocks:     make(map[string]*world.Stock, len(dd.Stocks)),
		}
		for name, st := range dd.Stocks {
			d.Stocks[name] = &world.Stock{Current: st.Current, Capacity: st.Capacity}
		}
		if dd.Coord != nil {
			d.Coord = world.Vec3{X: dd.Coord.X, Y: dd.Coord.Y, Z: dd.Coord.Z}
			d.HasCoord = true
		}
		city.Districts = append(city.Districts, d)
	}

	w := world.New(def.Seed, city)
	for _, fd := range def.Factions {
		f := &world.Faction{
			ID:           fd.ID,
			Name:         fd.Name,
			Legitimacy:   fd.Legitimacy,
			HomeDistrict: fd.HomeDistrict,
			Resources:    make(map[string]int, len(fd.Resources)),
		}
		for name, n := range fd.Resources {
			f.Resources[name] = n
		}
		w.Factions[fd.ID] = f
	}
	for _, ad := range def.Agents {
		w.Agents = append(w.Agents, &world.Agent{
			ID:        ad.ID,
			Name:      ad.Name,
			Archetype: ad.Archetype,
			District:  ad.District,
			Drive:     ad.Drive,
		})
	}
	for _, sd := range def.StorySeeds {
		seed := &world.StorySeed{
			ID:            sd.ID,
			Title:         sd.Title,
			Stakes:        sd.Stakes,
			Resolution:    world.Resolution{Success: sd.Resolution.Success, Failure: sd.Resolution.Failure},
			TravelHint:    sd.TravelHint,
			Followups:     append([]string{}, sd.Followups...),
			CooldownTicks: sd.CooldownTicks,
		}
		for _, tr := range sd.Triggers {
			seed.Triggers = append(seed.Triggers, world.TriggerPattern{Contains: tr.Contains, Scope: tr.Scope})
		}
		w.Seeds[sd.ID] = seed
	}

	w.Env = def.Environment.toWorld()
	w.Focus.District = def.FocusDistrict
	w.Meta[MetaContentDigest] = def.Digest
	w.Meta[MetaContentPath] = def.SourcePath
	w.Reindex()
	return w, nil
}

// LoadWorld is the one-call path binaries use: read, validate, build.
func LoadWorld(path, schemaPath string) (*world.World, error) {
	def, err := LoadDefinition(path, schemaPath)
	if err != nil {
		return nil, err
	}
	return Build(def)
}

func (e EnvironmentDef) toWorld() world.Environment {
	return world.Environment{
		Stability: e.Stability,
		Unrest:    e.Unrest,
		Pollution: e.Pollution,
	}
}

func checkReferences(def *CityDefinition) error {
	if len(def.Districts) == 0 {
		return fmt.Errorf("city %s: no districts", def.City.ID)
	}

	districts := make(map[string]bool, len(def.Districts))
	for _, d := range def.Districts {
		if districts[d.ID] {
			return fmt.Errorf("district %s: duplicate id", d.ID)
		}
		districts[d.ID] = true
		for name, st := range d.Stocks {
			if st.Capacity < 0 {
				return fmt.Errorf("district %s: stock %s: negative capacity", d.ID, name)
			}
			if st.Current < 0 || st.Current > st.Capacity {
				return fmt.Errorf("district %s: stock %s: current %v outside [0, %v]",
					d.ID, name, st.Current, st.Capacity)
			}
		}
	}
	for _, d := range def.Districts {
		for _, adj := range d.Adjacent {
			if !districts[adj] {
				return fmt.Errorf("district %s: adjacent %s: unknown district", d.ID, adj)
			}
			if adj == d.ID {
				return fmt.Errorf("district %s: adjacent to itself", d.ID)
			}
		}
	}

	factions := make(map[string]bool, len(def.Factions))
	for _, f := range def.Factions {
		if factions[f.ID] {
			return fmt.Errorf("faction %s: duplicate id", f.ID)
		}
		factions[f.ID] = true
		if !districts[f.HomeDistrict] {
			return fmt.Errorf("faction %s: home_district %s: unknown district", f.ID, f.HomeDistrict)
		}
	}

	agents := make(map[string]bool, len(def.Agents))
	for _, a := range def.Agents {
		if agents[a.ID] {
			return fmt.Errorf("agent %s: duplicate id", a.ID)
		}
		agents[a.ID] = true
		if !districts[a.District] {
			return fmt.Errorf("agent %s: district %s: unknown district", a.ID, a.District)
		}
	}

	seeds := make(map[string]bool, len(def.StorySeeds))
	for _, s := range def.StorySeeds {
		if seeds[s.ID] {
			return fmt.Errorf("story seed %s: duplicate id", s.ID)
		}
		seeds[s.ID] = true
	}
	for _, s := range def.StorySeeds {
		if s.TravelHint != "" && !districts[s.TravelHint] {
			return fmt.Errorf("story seed %s: travel_hint %s: unknown district", s.ID, s.TravelHint)
		}
		for _, fu := range s.Followups {
			if !seeds[fu] {
				return fmt.Errorf("story seed %s: followup %s: unknown seed", s.ID, fu)
			}
		}
	}

	if def.FocusDistrict != "" && !districts[def.FocusDistrict] {
		return fmt.Errorf("focus_district %s: unknown district", def.FocusDistrict)
	}
	return nil
}
