package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dpup/prefab/logging"
	"github.com/joho/godotenv"
	"github.com/kr/pretty"
	"github.com/twpayne/go-kml"

	"github.com/dpup/info.ersn.net/navigator/internal/config"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/navigation"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/offroute"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Optional .env with PF__ overrides for the prefab config
	_ = godotenv.Load()

	command := os.Args[1]

	switch command {
	case "replay":
		handleReplay()
	case "check-intersection":
		handleCheckIntersection()
	case "export-kml":
		handleExportKML()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleReplay() {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	routeFile := fs.String("route", "", "Path to a Directions v5 JSON response")
	traceFile := fs.String("trace", "", "Path to a JSON lines file of location fixes")
	configFile := fs.String("config", "", "Path to a navigation YAML config (defaults to prefab config)")
	kmlFile := fs.String("kml", "", "Write the route, snapped track and off-route points to this KML file")
	precision := fs.Int("precision", geo.PrecisionPolyline6, "Polyline precision of the route geometry (5 or 6)")
	verbose := fs.Bool("verbose", false, "Dump the final state and statistics")
	deriveBearing := fs.Bool("derive-bearing", false, "Replace trace bearings with the direction traveled between fixes")

	fs.Parse(os.Args[2:])

	if *routeFile == "" || *traceFile == "" {
		fmt.Println("Example usage:")
		fmt.Println("  navreplay replay --route directions.json --trace trace.jsonl")
		fmt.Println("  navreplay replay --route directions.json --trace trace.jsonl --config nav.yaml --kml replay.kml --verbose")
		fmt.Println("")
		printSampleTrace()
		os.Exit(1)
	}

	cfg := loadConfig(*configFile)
	r := loadRoute(*routeFile, *precision)
	fixes := loadTrace(*traceFile)
	if *deriveBearing {
		var err error
		if fixes, err = progress.DeriveBearings(fixes); err != nil {
			log.Fatalf("Error deriving bearings: %v", err)
		}
	}

	fmt.Printf("Replaying %d fixes over %d leg(s), %.0f meters...\n\n", len(fixes), len(r.Legs), r.TotalDistance())

	ctx, cancel := context.WithCancel(logging.EnsureLogger(context.Background()))
	defer cancel()

	matcher := route.NewMatcherWithThreshold(cfg.Navigation.OffRouteThreshold)
	var track []geo.Point
	var offRoute []kml.Element
	delivered := make(chan struct{}, 1)

	loop := navigation.NewLoop(cfg.Navigation.DispatchBuffer)
	pipeline, err := navigation.New(cfg.Navigation,
		navigation.WithDispatcher(loop),
		navigation.WithAlertLevelListener(func(e navigation.AlertLevelEvent) {
			fmt.Printf("#%-4d alert   %s -> %s\n", e.Seq, e.Previous, e.Current)
		}),
		navigation.WithOffRouteListener(func(e navigation.OffRouteEvent) {
			fmt.Printf("#%-4d OFF ROUTE heading %.0f°, intersection bearings %v out %d\n",
				e.Seq, e.Location.Bearing, e.Intersection.Bearings, e.Intersection.Out)
			offRoute = append(offRoute, route.PointPlacemark(
				fmt.Sprintf("Off route #%d", e.Seq),
				fmt.Sprintf("heading %.0f, leg %d step %d", e.Location.Bearing, e.State.LegIndex, e.State.StepIndex),
				e.Location.Point()))
		}),
		navigation.WithProgressListener(func(e navigation.ProgressEvent) {
			fmt.Printf("#%-4d leg %d step %-3d %-7s %7.1fm left on step, %5.1f%% of route\n",
				e.Seq, e.State.LegIndex, e.State.StepIndex, e.State.AlertLevel,
				e.State.DistanceRemainingOnStep, e.State.FractionTraveledOnRoute()*100)
			leg := e.State.CurrentLeg()
			if away, err := matcher.IsOffRoute(e.RawLocation.Point(), leg); err == nil && away {
				nearest, _ := matcher.ClosestStep(e.RawLocation.Point(), leg)
				fmt.Printf("      more than %.0fm from every step of the leg, nearest is step %d\n",
					cfg.Navigation.OffRouteThreshold, nearest)
			}
			track = append(track, e.Location.Point())
			delivered <- struct{}{}
		}),
	)
	if err != nil {
		log.Fatalf("Error creating pipeline: %v", err)
	}

	if err := pipeline.Start(ctx, r); err != nil {
		log.Fatalf("Error starting navigation: %v", err)
	}

	// Feed one fix at a time so none are superseded; listeners run on this goroutine
	go func() {
		defer cancel()
		for _, loc := range fixes {
			if !pipeline.Submit(loc) {
				return
			}
			select {
			case <-delivered:
			case <-ctx.Done():
				return
			}
		}
	}()
	_ = loop.Run(ctx)

	if err := pipeline.Stop(context.Background()); err != nil {
		log.Fatalf("Error stopping navigation: %v", err)
	}

	stats := pipeline.Stats()
	final := pipeline.Last()
	fmt.Printf("\nREPLAY SUMMARY:\n")
	fmt.Printf("  Session: %s\n", pipeline.SessionID())
	fmt.Printf("  Processed: %d, delivered: %d, off route: %d\n", stats.Processed, stats.Delivered, stats.OffRoute)
	fmt.Printf("  Final position: leg %d step %d (%s)\n", final.LegIndex, final.StepIndex, final.AlertLevel)
	fmt.Printf("  Distance remaining: %.0f meters\n", final.DistanceRemainingOnRoute())

	if *verbose {
		fmt.Printf("\nSTATISTICS:\n")
		pretty.Println(stats)
		fmt.Printf("\nFINAL STEP:\n")
		pretty.Println(final.CurrentStep().Maneuver)
	}

	if *kmlFile != "" {
		extra := append([]kml.Element{route.TrackPlacemark("Delivered track", track)}, offRoute...)
		writeKML(*kmlFile, r, "Replay "+pipeline.SessionID(), extra...)
	}
}

func handleCheckIntersection() {
	fs := flag.NewFlagSet("check-intersection", flag.ExitOnError)
	bearings := fs.String("bearings", "", "Comma separated intersection bearings, e.g. 0,90,180,270")
	entry := fs.String("entry", "", "Comma separated entry flags, e.g. 1,1,0,1")
	in := fs.Int("in", route.NoBearing, "Index of the approach bearing")
	out := fs.Int("out", route.NoBearing, "Index of the routed exit bearing")
	heading := fs.Float64("heading", 0, "Traveler heading in degrees")
	tolerance := fs.Float64("tolerance", offroute.DefaultAngleTolerance, "Angle tolerance in degrees")

	fs.Parse(os.Args[2:])

	if *bearings == "" || *entry == "" {
		fmt.Println("Example usage:")
		fmt.Println("  navreplay check-intersection --bearings 0,90,180,270 --entry 1,1,0,1 --in 2 --out 0 --heading 95 --tolerance 20")
		os.Exit(1)
	}

	intersection := route.Intersection{
		Bearings: parseInts(*bearings),
		Entry:    parseBools(*entry),
		In:       *in,
		Out:      *out,
	}

	detector := offroute.NewDetector(offroute.Options{AngleTolerance: *tolerance})
	onRoute, err := detector.Check(intersection, *heading)

	fmt.Printf("INTERSECTION:\n")
	fmt.Printf("  Bearings: %v\n", intersection.Bearings)
	fmt.Printf("  Entry: %v\n", intersection.Entry)
	fmt.Printf("  In: %d, Out: %d\n", intersection.In, intersection.Out)
	fmt.Printf("\nTRAVELER:\n")
	fmt.Printf("  Heading: %.1f°\n", *heading)
	fmt.Printf("  Tolerance: %.1f°\n", *tolerance)

	fmt.Printf("\nRESULT:\n")
	if err != nil {
		fmt.Printf("  ⚠️  %v (treated as on route)\n", err)
	}
	if onRoute {
		fmt.Printf("  ✅ On route\n")
	} else {
		fmt.Printf("  ❌ Off route\n")
	}
}

func handleExportKML() {
	fs := flag.NewFlagSet("export-kml", flag.ExitOnError)
	routeFile := fs.String("route", "", "Path to a Directions v5 JSON response")
	outFile := fs.String("out", "", "Path of the KML file to write")
	precision := fs.Int("precision", geo.PrecisionPolyline6, "Polyline precision of the route geometry (5 or 6)")

	fs.Parse(os.Args[2:])

	if *routeFile == "" || *outFile == "" {
		fmt.Println("Example usage:")
		fmt.Println("  navreplay export-kml --route directions.json --out route.kml")
		os.Exit(1)
	}

	r := loadRoute(*routeFile, *precision)
	writeKML(*outFile, r, *routeFile)

	steps := 0
	for _, leg := range r.Legs {
		steps += len(leg.Steps)
	}
	fmt.Printf("✅ Wrote %d leg(s), %d step(s) to %s\n", len(r.Legs), steps, *outFile)
}

// loadConfig reads the given YAML file, or the navigation section of prefab's
// config when no file is given
func loadConfig(path string) *config.Config {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromPrefab()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func loadRoute(path string, precision int) *route.Route {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Error reading route file %s: %v", path, err)
	}
	defer f.Close()

	r, err := route.DecodeDirections(f, precision)
	if err != nil {
		log.Fatalf("Error parsing route: %v", err)
	}
	return r
}

func loadTrace(path string) []progress.Location {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Error reading trace file %s: %v", path, err)
	}
	defer f.Close()

	var fixes []progress.Location
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var loc progress.Location
		if err := json.Unmarshal([]byte(text), &loc); err != nil {
			log.Fatalf("Error parsing trace line %d: %v", line, err)
		}
		fixes = append(fixes, loc)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Error reading trace: %v", err)
	}
	return fixes
}

func writeKML(path string, r *route.Route, name string, extra ...kml.Element) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Error creating %s: %v", path, err)
	}
	defer f.Close()

	if err := route.WriteKML(f, r, name, extra...); err != nil {
		log.Fatalf("Error writing KML: %v", err)
	}
}

func parseInts(s string) []int {
	var values []int
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			log.Fatalf("Invalid integer %q: %v", field, err)
		}
		values = append(values, v)
	}
	return values
}

func parseBools(s string) []bool {
	var values []bool
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseBool(strings.TrimSpace(field))
		if err != nil {
			log.Fatalf("Invalid flag %q: %v", field, err)
		}
		values = append(values, v)
	}
	return values
}

func printSampleTrace() {
	fmt.Println("Sample trace.jsonl (one fix per line, speed in m/s):")
	fmt.Println(`{"lat": 38.0675, "lng": -120.5436, "bearing": 0, "speed": 12.5, "time": "2025-01-10T16:00:00Z"}`)
	fmt.Println(`{"lat": 38.0681, "lng": -120.5436, "bearing": 2, "speed": 13.1, "time": "2025-01-10T16:00:05Z"}`)
}

func printUsage() {
	fmt.Println("navreplay - Replay navigation traces against a route")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  navreplay <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  replay              Run a recorded trace through the progress pipeline")
	fmt.Println("  check-intersection  Test a heading against one intersection")
	fmt.Println("  export-kml          Write a route to KML")
	fmt.Println("  help                Show this help message")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  navreplay replay --route directions.json --trace trace.jsonl --kml replay.kml")
	fmt.Println("  navreplay check-intersection --bearings 0,90,180,270 --entry 1,1,0,1 --in 2 --out 0 --heading 95 --tolerance 20")
	fmt.Println("  navreplay export-kml --route directions.json --out route.kml")
}
