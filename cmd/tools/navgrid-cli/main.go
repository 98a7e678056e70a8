package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/navgrid/internal/auth"
	"github.com/annel0/navgrid/internal/config"
	"github.com/annel0/navgrid/internal/logging"
	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/terrain"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world"
	"github.com/annel0/navgrid/internal/world/entity"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации")
		command    = flag.String("cmd", "render", "Command: render, path, spawn, token")
		regionFlag = flag.String("region", "0,0", "Region key rx,ry")
		fromFlag   = flag.String("from", "", "Start world position x,y (path)")
		toFlag     = flag.String("to", "", "Target world position x,y (path)")
		count      = flag.Int("n", 10, "Number of entities (spawn)")
		kind       = flag.String("type", "tree", "Entity type (spawn)")
		ground     = flag.String("ground", "", "Ground categories filter, comma-separated (spawn)")
		seed       = flag.Int64("seed", 0, "Terrain seed override")
		client     = flag.String("client", "navgrid-cli", "Token client name (token)")
		admin      = flag.Bool("admin", false, "Issue admin token (token)")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *seed != 0 {
		cfg.Terrain.Seed = *seed
	}
	level := logging.WARN
	if *verbose {
		level = logging.TRACE
	}
	logging.SetDefaultLogger(logging.NewConsoleLogger("navgrid-cli", os.Stderr, level))

	if *command == "token" {
		if err := issueToken(cfg.Server.GetAuthSecret(), *client, *admin); err != nil {
			log.Fatalf("Token failed: %v", err)
		}
		return
	}

	key, err := parseRegion(*regionFlag)
	if err != nil {
		log.Fatalf("Invalid -region: %v", err)
	}

	gen := terrain.NewGenerator(cfg.Terrain)
	regions := world.NewRegionManager(gen, cfg.NavGrid, cfg.World)
	if err := regions.ActivateRegion(key); err != nil {
		log.Fatalf("Failed to activate region: %v", err)
	}

	switch *command {
	case "render":
		if err := regions.WithGrid(key, func(g *navgrid.Grid) {
			fmt.Print(g.Render(nil))
		}); err != nil {
			log.Fatalf("Render failed: %v", err)
		}

	case "path":
		if err := showPath(regions, key, *fromFlag, *toFlag); err != nil {
			log.Fatalf("Path failed: %v", err)
		}

	case "spawn":
		if err := spawnMany(regions, key, *kind, *ground, *count, cfg.NavGrid.MaxWalkableSlope); err != nil {
			log.Fatalf("Spawn failed: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		flag.Usage()
		os.Exit(2)
	}
}

// showPath печатает контрольную точку и карту с полным путём A*
func showPath(regions *world.RegionManager, key world.RegionKey, fromRaw, toRaw string) error {
	from, err := parseVec(fromRaw)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	to, err := parseVec(toRaw)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	cp, clearWay, err := regions.GetPathFoundNextCheckpoint(key, from, to)
	if err != nil {
		return err
	}
	fmt.Printf("checkpoint: (%.2f, %.2f, %.2f) clear_way=%v\n", cp.X, cp.Y, cp.Z, clearWay)

	return regions.WithGrid(key, func(g *navgrid.Grid) {
		result := g.FindPath(g.WorldToTile(from), g.ClosestInBounds(g.WorldToTile(to)))
		fmt.Printf("search: %s, %d iterations, %d tiles\n", result.Outcome, result.Iterations, len(result.Path))
		fmt.Print(g.Render(result.Path))
	})
}

// spawnMany ставит n сущностей на случайные свободные клетки суши
func spawnMany(regions *world.RegionManager, key world.RegionKey, kind, groundRaw string, n int, maxSlope float64) error {
	entityType, ok := entity.ParseEntityType(kind)
	if !ok {
		return fmt.Errorf("unknown entity type %q", kind)
	}

	p := navgrid.PlacementPredicates{
		Water: navgrid.WaterAbove,
		Slope: navgrid.SlopeRange{Min: 0, Max: maxSlope},
	}
	if groundRaw != "" {
		mask, err := navgrid.ParseGrounds(strings.Split(groundRaw, ","))
		if err != nil {
			return err
		}
		p.Ground = mask
	}

	for i := 0; i < n; i++ {
		e, err := regions.SpawnEntity(key, entityType, p)
		if err != nil {
			fmt.Printf("stopped after %d: %v\n", i, err)
			break
		}
		pos := e.WorldPosition()
		fmt.Printf("%d\t%s\t(%.2f, %.2f, %.2f)\n", e.ID, e.Type, pos.X, pos.Y, pos.Z)
	}

	return regions.WithGrid(key, func(g *navgrid.Grid) {
		fmt.Print(g.Render(nil))
	})
}

// issueToken печатает токен API; без секрета генерирует и печатает новый секрет
func issueToken(secret, client string, admin bool) error {
	if secret == "" {
		generated, err := auth.GenerateSecureSecret()
		if err != nil {
			return err
		}
		fmt.Printf("auth_secret: %s\n", generated)
		secret = generated
	}

	tokens, err := auth.NewTokenIssuer(secret, 24*time.Hour)
	if err != nil {
		return err
	}
	token, err := tokens.Generate(client, admin)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func parseRegion(s string) (world.RegionKey, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return world.RegionKey{}, fmt.Errorf("expected rx,ry, got %q", s)
	}
	rx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return world.RegionKey{}, err
	}
	ry, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return world.RegionKey{}, err
	}
	return world.RegionKey{X: rx, Y: ry}, nil
}

func parseVec(s string) (vec.Vec2Float, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return vec.Vec2Float{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return vec.Vec2Float{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return vec.Vec2Float{}, err
	}
	return vec.Vec2Float{X: x, Y: y}, nil
}
