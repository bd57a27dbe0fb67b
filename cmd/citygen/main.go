// Command citygen writes a procedurally generated city definition. The same
// seed and parameters always produce the same YAML, so generated cities can
// be checked in and shared like authored ones.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cityloom.ai/internal/content"
)

func main() {
	base := content.DefaultGenConfig()
	var (
		out       = flag.String("out", "configs/city.yaml", "output path (- for stdout)")
		seed      = flag.Int64("seed", base.Seed, "generator seed")
		districts = flag.Int("districts", base.Districts, "district count (min 2)")
		name      = flag.String("name", "", "city name (default: drawn from the seed)")
		resources = flag.String("resources", strings.Join(base.Resources, ","), "comma-separated resource list")
	)
	flag.Parse()

	cfg := content.GenConfig{
		Seed:      *seed,
		Districts: *districts,
		CityName:  *name,
		Resources: splitList(*resources),
	}
	city := content.Generate(cfg)
	b, err := content.EncodeDefinition(city)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode city:", err)
		os.Exit(1)
	}

	if *out == "-" {
		if _, err := os.Stdout.Write(b); err != nil {
			fmt.Fprintln(os.Stderr, "write stdout:", err)
			os.Exit(1)
		}
		return
	}
	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "create output directory:", err)
			os.Exit(1)
		}
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write city:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: city=%s districts=%d factions=%d agents=%d seeds=%d\n",
		*out, city.City.ID, len(city.Districts), len(city.Factions), len(city.Agents), len(city.StorySeeds))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
