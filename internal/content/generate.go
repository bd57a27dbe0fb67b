package content

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gopkg.in/yaml.v3"
)

// GenConfig holds city generation parameters. The same config always
// produces the same definition, byte for byte once encoded.
type GenConfig struct {
	Seed      int64
	Districts int
	CityName  string
	Resources []string
}

func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:      1337,
		Districts: 6,
		Resources: []string{"grain", "fuel"},
	}
}

var (
	cityNames = []string{
		"Graymarsh", "Saltmere", "Covehollow", "Tidesend", "Ashquay", "Bricklawn",
	}
	districtPrefixes = []string{
		"Ash", "Brine", "Copper", "Drift", "Ember", "Fen", "Gull", "Hollow",
		"Iron", "Lantern", "Moss", "Quay", "Rook", "Salt", "Tallow", "Wick",
	}
	districtSuffixes = []string{
		"gate", "market", "works", " Row", "yards", " Cross", "dock", "field", "borough", " Steps",
	}
	factionLeads = []string{"Harbor", "Ledger", "Lamplight", "Brine", "Gull", "Copper", "Tide", "Cinder"}
	factionForms = []string{"Combine", "Guild", "Court", "Syndicate", "Union", "Choir"}
	givenNames   = []string{"Serra", "Bilt", "Onna", "Vex", "Mori", "Anse", "Petra", "Collum", "Idra", "Tamsin"}
	familyNames  = []string{"Quill", "Harrow", "Reed", "Calder", "Plume", "Voss", "Marsh", "Strand", "Holt", "Crane"}
)

// Generate lays districts on a ring, samples three noise layers for wealth,
// strain, and terrain, and derives stocks, factions, agents, and a chained
// pair of story seeds from them. All randomness flows from cfg.Seed.
func Generate(cfg GenConfig) *CityDefinition {
	n := cfg.Districts
	if n < 2 {
		n = 2
	}
	resources := cfg.Resources
	if len(resources) == 0 {
		resources = []string{"grain", "fuel"}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	wealth := opensimplex.NewNormalized(cfg.Seed)
	strain := opensimplex.NewNormalized(cfg.Seed + 1)
	supply := opensimplex.NewNormalized(cfg.Seed + 2)

	cityName := cfg.CityName
	if cityName == "" {
		cityName = cityNames[rng.Intn(len(cityNames))]
	}

	def := &CityDefinition{
		City: CityHeader{ID: slug(cityName), Name: cityName},
		Seed: cfg.Seed,
		Environment: EnvironmentDef{
			Stability: round2(0.6 + 0.3*rng.Float64()),
			Unrest:    round2(0.05 + 0.2*rng.Float64()),
			Pollution: round2(0.05 + 0.2*rng.Float64()),
		},
	}

	radius := 4.0 + float64(n)*0.8
	names := districtNames(rng, n)

	// Track the district deepest in shortage of the first resource; it
	// anchors the generated story seeds and the initial focus.
	scarcestID := ""
	scarcestFill := math.Inf(1)

	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		x := round2(math.Cos(angle) * radius)
		z := round2(math.Sin(angle) * radius)

		w := octaveNoise(wealth, x, z, 3, 0.11, 0.5)
		s := octaveNoise(strain, x, z, 3, 0.09, 0.5)

		dd := DistrictDef{
			ID:         slug(names[i]),
			Name:       names[i],
			Population: 400 + int(w*4600),
			Security:   round2(0.25 + 0.6*w),
			Unrest:     round2(0.05 + 0.5*s),
			Pollution:  round2(0.05 + 0.45*s),
			Coord:      &CoordDef{X: x, Y: 0, Z: z},
			Stocks:     make(map[string]StockDef, len(resources)),
		}
		for ri, res := range resources {
			capacity := math.Round(60 + 140*octaveNoise(supply, x+float64(ri)*17.3, z, 2, 0.07, 0.5))
			fill := 0.1 + 0.85*octaveNoise(supply, x, z+float64(ri)*23.7, 2, 0.1, 0.5)
			dd.Stocks[res] = StockDef{Current: math.Round(capacity * fill), Capacity: capacity}
			if ri == 0 && fill < scarcestFill {
				scarcestFill = fill
				scarcestID = dd.ID
			}
		}
		def.Districts = append(def.Districts, dd)
	}

	linkRing(def, rng, n)
	def.FocusDistrict = scarcestID

	def.Factions = generateFactions(rng, def.Districts)
	def.Agents = generateAgents(rng, def.Districts)
	def.StorySeeds = generateSeeds(rng, resources[0], scarcestID)
	return def
}

// EncodeDefinition renders a definition as YAML. Struct fields encode in
// declaration order and maps in sorted key order, so equal definitions
// encode to equal bytes.
func EncodeDefinition(def *CityDefinition) ([]byte, error) {
	b, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encode city %s: %w", def.City.ID, err)
	}
	return b, nil
}

// linkRing connects each district to its ring neighbors, then adds a few
// cross-town chords so routes have shortcuts worth planning around.
func linkRing(def *CityDefinition, rng *rand.Rand, n int) {
	connect := func(a, b int) {
		da, db := &def.Districts[a], &def.Districts[b]
		if !contains(da.Adjacent, db.ID) {
			da.Adjacent = append(da.Adjacent, db.ID)
		}
		if !contains(db.Adjacent, da.ID) {
			db.Adjacent = append(db.Adjacent, da.ID)
		}
	}
	for i := 0; i < n; i++ {
		connect(i, (i+1)%n)
	}
	for i := 0; i < n; i++ {
		if n >= 5 && rng.Float64() < 0.3 {
			connect(i, (i+n/2)%n)
		}
	}
}

func generateFactions(rng *rand.Rand, districts []DistrictDef) []FactionDef {
	count := min(2+len(districts)/3, 4)
	seen := map[string]bool{}
	out := make([]FactionDef, 0, count)
	for len(out) < count {
		name := factionLeads[rng.Intn(len(factionLeads))] + " " +
			factionForms[rng.Intn(len(factionForms))]
		id := slug(name)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, FactionDef{
			ID:           id,
			Name:         name,
			Legitimacy:   round2(0.35 + 0.6*rng.Float64()),
			HomeDistrict: districts[len(out)%len(districts)].ID,
			Resources:    map[string]int{"influence": 3 + rng.Intn(7)},
		})
	}
	return out
}

func generateAgents(rng *rand.Rand, districts []DistrictDef) []AgentDef {
	archetypes := []string{"inspector", "broker", "courier"}
	out := make([]AgentDef, 0, len(districts))
	for i, d := range districts {
		name := givenNames[rng.Intn(len(givenNames))] + " " + familyNames[rng.Intn(len(familyNames))]
		out = append(out, AgentDef{
			ID:        fmt.Sprintf("ag_%02d_%s", i+1, slug(name)),
			Name:      name,
			Archetype: archetypes[i%len(archetypes)],
			District:  d.ID,
			Drive:     round2(0.3 + 0.65*rng.Float64()),
		})
	}
	return out
}

func generateSeeds(rng *rand.Rand, resource, hintDistrict string) []StorySeedDef {
	return []StorySeedDef{
		{
			ID:    "scarcity_" + resource,
			Title: fmt.Sprintf("The %s Famine", titleWord(resource)),
			Triggers: []TriggerDef{
				{Contains: "shortage of " + resource, Scope: "economy"},
			},
			Stakes:        fmt.Sprintf("the city cannot feed its %s lines", resource),
			Resolution:    ResolutionDef{Success: "the stores hold", Failure: "the quarter goes without"},
			TravelHint:    hintDistrict,
			Followups:     []string{"unrest_aftermath"},
			CooldownTicks: 3 + rng.Intn(4),
		},
		{
			ID:    "unrest_aftermath",
			Title: "Aftermath in the Streets",
			Triggers: []TriggerDef{
				{Contains: "saboteurs", Scope: "faction"},
				{Contains: "scarcity pressure", Scope: "environment"},
			},
			Stakes:        "blame is looking for a district to land on",
			Resolution:    ResolutionDef{Success: "the crowds disperse", Failure: "the council loses the street"},
			TravelHint:    hintDistrict,
			CooldownTicks: 2 + rng.Intn(3),
		},
	}
}

// districtNames draws unique prefix+suffix names, falling back to numbered
// wards once the combination space thins out.
func districtNames(rng *rand.Rand, n int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, n)
	for len(out) < n {
		name := districtPrefixes[rng.Intn(len(districtPrefixes))] +
			districtSuffixes[rng.Intn(len(districtSuffixes))]
		if seen[name] {
			if len(seen) >= len(districtPrefixes)*len(districtSuffixes)/2 {
				name = fmt.Sprintf("Ward %d", len(out)+1)
			} else {
				continue
			}
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// octaveNoise layers 2D simplex noise, normalized back to [0,1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total, amplitude, maxValue := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}
	if maxValue == 0 {
		return 0
	}
	return total / maxValue
}

func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
