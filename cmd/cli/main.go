package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"

	"hybrid-sizing/internal/analysis"
	"hybrid-sizing/internal/config"
	"hybrid-sizing/internal/data"
	"hybrid-sizing/internal/optimizer"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "optimize":
		cmdOptimize(os.Args[2:])
	case "combos":
		cmdCombos(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli optimize --config examples/run.yaml --out results --top 3")
	fmt.Println("  cli combos --config examples/run.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - optimize writes summary.csv plus one dispatch trace CSV per top combination")
	fmt.Println("  - combos lists the combinations optimize would evaluate, without solving")
}

func cmdOptimize(args []string) {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML run config")
	outDir := fs.String("out", "results", "Output directory for CSV files")
	top := fs.Int("top", 3, "Number of ranked combinations to print and trace (0=all)")
	logLevel := fs.String("log-level", "", "Override logging.level from the config")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(nil, "loading config", err)
	}
	logger, err := config.NewLogger(cfg.Logging, *logLevel)
	if err != nil {
		fail(nil, "initializing logger", err)
	}
	defer logger.Sync() //nolint:errcheck

	cache := data.NewProfileCache(0)
	in, warnings, err := cfg.Inputs(cache)
	if err != nil {
		fail(logger, "assembling inputs", err)
	}
	logger.Debug("inputs assembled",
		zap.Int("snapshots", in.Demand.Len()),
		zap.Int("profile_files", cache.Len()),
	)
	for _, w := range warnings {
		logger.Warn("ignoring malformed scenario parameter", zap.Error(w))
	}

	timeout, _ := cfg.Engine.Timeout()
	engine := optimizer.New(logger)
	if cfg.Engine.Workers > 0 {
		engine.Workers = cfg.Engine.Workers
	}
	engine.MaxCombinations = cfg.Engine.MaxCombinations
	engine.CombinationTimeout = timeout
	engine.Halve = cfg.Engine.Halve

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ranking, err := engine.Evaluate(ctx, in.Owners, in.Demand, in.Scenario)
	if ranking != nil {
		for _, f := range ranking.Failures {
			fmt.Printf("skipped %-28s %v\n", f.Key, f.Err)
		}
	}
	if err != nil {
		fail(logger, "optimization failed", err)
	}

	best := analysis.Top(ranking.Results, *top)
	fmt.Printf("%-4s %-28s %-9s %-9s %-9s %-9s %-8s %-8s %-12s %-12s\n",
		"rank", "combination", "solar_mw", "wind_mw", "stor_mw", "stor_mwh", "offset%", "curt%", "$/mwh", "landed$/mwh")
	for i, r := range best {
		fmt.Printf("%-4d %-28s %-9.1f %-9.1f %-9.1f %-9.1f %-8.1f %-8.1f %-12s %-12s\n",
			i+1,
			r.Key,
			r.Capacities.SolarMW,
			r.Capacities.WindMW,
			r.Capacities.StorageMW,
			r.Capacities.StorageMWh,
			r.DemandOffsetPct,
			r.CurtailmentPct,
			money(r.PerUnitCost),
			money(r.LandedCost),
		)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fail(logger, "creating output directory", err)
	}
	summary := filepath.Join(*outDir, "summary.csv")
	if err := optimizer.WriteSummaryCSV(summary, ranking.Results); err != nil {
		fail(logger, "writing summary", err)
	}
	for _, r := range best {
		path := filepath.Join(*outDir, fmt.Sprintf("dispatch_%s.csv", r.Key))
		if err := optimizer.WriteTraceCSV(path, r); err != nil {
			fail(logger, "writing trace", err)
		}
	}

	fmt.Printf("Evaluated %d combinations (%d solved), wrote %s and %d traces\n",
		ranking.Attempted, len(ranking.Results), summary, len(best))
}

func cmdCombos(args []string) {
	fs := flag.NewFlagSet("combos", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML run config")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(nil, "loading config", err)
	}
	in, _, err := cfg.Inputs(data.NewProfileCache(0))
	if err != nil {
		fail(nil, "assembling inputs", err)
	}

	combos := optimizer.Enumerate(in.Owners)
	fmt.Printf("%-4s %-28s %-12s %-12s %-12s\n", "#", "combination", "solar", "wind", "storage")
	for i, c := range combos {
		fmt.Printf("%-4d %-28s %-12s %-12s %-12s\n", i+1, c.ID, dash(c.ID.Solar), dash(c.ID.Wind), dash(c.ID.Storage))
	}
	fmt.Printf("%d combinations\n", len(combos))
}

func money(x float64) string {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", x)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func fail(logger *zap.Logger, msg string, err error) {
	if logger != nil {
		logger.Error(msg, zap.Error(err))
		_ = logger.Sync()
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	}
	os.Exit(1)
}
