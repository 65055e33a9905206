package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/driftscope/api"
	"github.com/xiaot623/driftscope/config"
	"github.com/xiaot623/driftscope/domain"
	"github.com/xiaot623/driftscope/metrics"
	"github.com/xiaot623/driftscope/policy"
	"github.com/xiaot623/driftscope/service"
	"github.com/xiaot623/driftscope/store"
	"github.com/xiaot623/driftscope/synth"
)

const usage = `driftscope <command> [flags]

Commands:
  analyze   compute instability metrics from a JSONL trace file
  check     run structural sanity checks on a JSONL trace file
  generate  emit synthetic JSONL traces
  serve     serve stored analysis runs over HTTP
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(cfg, os.Args[2:])
	case "check":
		err = runCheck(cfg, os.Args[2:])
	case "generate":
		err = runGenerate(os.Args[2:])
	case "serve":
		err = runServe(cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func runAnalyze(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "path to JSONL trace file (required)")
	maxSessions := fs.Int("max-sessions", cfg.MaxSessions, "limit on distinct trace_ids to load, 0 = unlimited")
	strict := fs.Bool("strict", cfg.StrictInput, "validate records against the event schema")
	persist := fs.Bool("store", false, "persist the run to the configured database")
	usePolicy := fs.Bool("policy", false, "classify signals via the Rego policy engine")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}
	cfg.MaxSessions = *maxSessions
	cfg.StrictInput = *strict

	ctx := context.Background()

	var detector metrics.Detector
	if *usePolicy {
		engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
		if err != nil {
			return fmt.Errorf("failed to initialize policy engine: %w", err)
		}
		detector = engine
	}

	var db store.Store
	if *persist {
		sqlStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		defer sqlStore.Close()
		db = sqlStore
	}

	svc := service.New(db, detector, cfg)
	report, err := svc.AnalyzeFile(ctx, *file, *persist)
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func runCheck(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	file := fs.String("file", "", "path to JSONL trace file (required)")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	svc := service.New(nil, nil, cfg)
	sanity, err := svc.CheckFile(context.Background(), *file)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d events across %d sessions.\n\n", sanity.Events, sanity.Traces)

	fmt.Println("[timestamp-monotonicity]")
	fmt.Printf("  sessions with violations: %d\n", sanity.SessionsWithRegressions)
	fmt.Printf("  total violations        : %d\n\n", sanity.TimestampViolations)

	fmt.Println("[span-fanout]")
	if len(sanity.FanOut) == 0 {
		fmt.Println("  no parent-child relationships detected (no parent_span_id fields).")
	} else {
		fans := make([]int, 0, len(sanity.FanOut))
		for fan := range sanity.FanOut {
			fans = append(fans, fan)
		}
		sort.Ints(fans)
		for _, fan := range fans {
			fmt.Printf("  spans with %2d children: %d\n", fan, sanity.FanOut[fan])
		}
	}
	fmt.Println()

	fmt.Println("[short-sessions]")
	fmt.Printf("  sessions with < 3 events: %d\n", len(sanity.ShortSessions))
	for _, tid := range sanity.ShortSessions {
		fmt.Printf("    - %s\n", tid)
	}

	if len(sanity.ReusedSpanIDs) > 0 {
		fmt.Println("\n[span-id-reuse]")
		for _, id := range sanity.ReusedSpanIDs {
			fmt.Printf("  %s appears in multiple traces\n", id)
		}
	}
	return nil
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	variant := fs.String("variant", synth.VariantLongHorizon, "trace variant: long_horizon, simple_correction_loop, noisy_mixed")
	sessions := fs.Int("sessions", 3, "number of sessions to generate")
	turns := fs.Int("turns", 30, "turns per session (long_horizon)")
	noise := fs.String("noise", "medium", "noise level: low, medium, high")
	seed := fs.Int64("seed", time.Now().UnixNano(), "RNG seed; fixed seeds give reproducible traces")
	fs.Parse(args)

	return synth.Generate(os.Stdout, synth.Options{
		Variant:  *variant,
		Sessions: *sessions,
		Turns:    *turns,
		Noise:    *noise,
		Seed:     *seed,
	})
}

func runServe(cfg *config.Config) error {
	log.Printf("Starting driftscope...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	svc := service.New(db, engine, cfg)
	h := api.NewHandler(svc, db, cfg)

	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	h.RegisterRoutes(server)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down driftscope...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: server shutdown: %v", err)
	}
	return nil
}

// printReport renders the human-readable summary.
func printReport(r *domain.Report) {
	fmt.Printf("Loaded %d events across %d sessions", r.EventCount, r.SessionCount)
	if r.MalformedLines > 0 {
		fmt.Printf(" (%d malformed lines skipped)", r.MalformedLines)
	}
	fmt.Print(".\n\n")

	if r.GapStats.Count > 0 {
		fmt.Println("[relative-latency-gap]")
		fmt.Printf("  samples: %d\n", r.GapStats.Count)
		fmt.Printf("  max    : %.3f\n", r.GapStats.Max)
		fmt.Printf("  mean   : %.3f\n", r.GapStats.Mean)
		fmt.Printf("  median : %.3f\n", r.GapStats.Median)
		fmt.Printf("  stddev : %.3f\n\n", r.GapStats.StdDev)
	}

	if r.RecoveryStats.Count > 0 {
		fmt.Println("[recovery-turn-distance]")
		fmt.Printf("  episodes: %d\n", r.RecoveryStats.Count)
		fmt.Printf("  mean    : %.2f turns\n", r.RecoveryStats.Mean)
		fmt.Printf("  median  : %.2f turns\n\n", r.RecoveryStats.Median)
	}

	fmt.Println("[post-correction-relapse-rate]")
	fmt.Printf("  sessions with correction: %d\n", r.RelapseRate.Den)
	fmt.Printf("  sessions with relapse   : %d\n", r.RelapseRate.Num)
	fmt.Printf("  relapse rate            : %s\n\n", r.RelapseRate.Percent())

	fmt.Println("[failover-frequency]")
	fmt.Printf("  failover events : %d\n", r.FailoverFrequency.Num)
	fmt.Printf("  lifecycle events: %d\n", r.FailoverFrequency.Den)
	fmt.Printf("  frequency       : %s\n\n", r.FailoverFrequency.Percent())

	if len(r.ClosureProfile) > 0 {
		fmt.Println("[session-closure-profile]")
		for _, cat := range domain.ClosureCategories {
			count, ok := r.ClosureProfile[cat]
			if !ok {
				continue
			}
			frac := domain.NewRatio(count, r.SessionCount)
			fmt.Printf("  %-28s: %3d  (%s)\n", cat, count, frac.Percent())
		}
	}
}
