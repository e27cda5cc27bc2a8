// Command seed fills the listing database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"earthhome/internal/config"
	"earthhome/internal/database"
	"earthhome/internal/seed"
)

func main() {
	numAgents := flag.Int("agents", 10, "Number of generated agents")
	numProperties := flag.Int("properties", 100, "Number of generated listings")
	favoritesPerUser := flag.Int("favorites", 5, "Maximum favorites per generated agent")
	fixturesPath := flag.String("fixtures", "", "YAML fixtures file (defaults to the built-in demo set)")
	skipFixtures := flag.Bool("skip-fixtures", false, "Do not load fixtures")
	shouldClean := flag.Bool("clean", false, "Delete existing users and listings first")
	fastHash := flag.Bool("fast-hash", true, "Hash seed passwords at minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{Seed: *randSeed, FastHash: *fastHash})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		log.Println("existing data cleared")
	}

	if !*skipFixtures {
		fx, err := loadFixtures(*fixturesPath)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		sum, err := s.SeedFixtures(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("fixtures: %s", sum)
	}

	if *numProperties > 0 || *numAgents > 0 {
		agents, props, err := s.SeedRandom(ctx, *numAgents, *numProperties)
		if err != nil {
			log.Fatalf("Random seeding failed: %v", err)
		}
		favs, err := s.SeedFavorites(ctx, agents, props, *favoritesPerUser)
		if err != nil {
			log.Fatalf("Favorite seeding failed: %v", err)
		}
		log.Printf("generated: %d agents, %d properties, %d favorites", len(agents), len(props), favs)
	}

	log.Printf("done. seeded accounts use the password %q", seed.DefaultPassword)
}

func loadFixtures(path string) (*seed.Fixtures, error) {
	if path == "" {
		return seed.DefaultFixtures()
	}
	return seed.LoadFixturesFile(path)
}
