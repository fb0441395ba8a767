package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/config"
	"PriceSentinel/internal/notifier"
	"PriceSentinel/internal/recorder"
	"PriceSentinel/internal/report"
	"PriceSentinel/internal/scheduler"
	"PriceSentinel/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := flag.String("config", "configs/config.yaml", "path to the YAML config (CONFIG_PATH overrides the default)")
	categories := flag.String("categories", "", "comma separated category keywords")
	maxPerCategory := flag.Int("max-per-category", 20, "max new product URLs per category")
	productURLs := flag.String("product-urls", "", "file with one product URL per line")
	minPrice := flag.Float64("min-price", 500, "exclude products cheaper than this from ranking")
	outPrefix := flag.String("out-prefix", "prisjakt_output", "output file name prefix")
	rendererKind := flag.String("renderer", "chrome", "page renderer: chrome or http")
	serve := flag.Bool("serve", false, "run the HTTP server, cron schedule and Telegram bot")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	path := *cfgPath
	if v := os.Getenv("CONFIG_PATH"); v != "" && !set["config"] {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}

	// Flags given on the command line win over config and environment.
	if set["categories"] {
		cfg.Scan.Categories = splitList(*categories)
	}
	if set["max-per-category"] {
		cfg.Scan.MaxPerCategory = *maxPerCategory
	}
	if set["product-urls"] {
		cfg.Scan.ProductURLsFile = *productURLs
	}
	if set["min-price"] {
		cfg.Scan.MinNowPrice = *minPrice
	}
	if set["out-prefix"] {
		cfg.Scan.OutPrefix = *outPrefix
	}
	if set["renderer"] {
		cfg.Renderer.Kind = *rendererKind
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init renderer
	var renderer collector.Renderer
	switch cfg.Renderer.Kind {
	case "http":
		renderer = collector.NewHTTPRenderer(cfg.RendererOptions())
	default:
		renderer = collector.NewChromeRenderer(cfg.RendererOptions())
	}
	defer renderer.Close()
	log.Printf("[INFO] renderer: %s", renderer.Name())

	col := collector.NewCollector(renderer, cfg.FlagThresholds(), cfg.ScanDelay())

	// Init notifier
	var n notifier.Notifier = notifier.NewNoopNotifier()
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, col, cfg.SiteLayout(), n, rec, scheduler.Defaults{
		Categories:      cfg.Scan.Categories,
		MaxPerCategory:  cfg.Scan.MaxPerCategory,
		ProductURLsFile: cfg.Scan.ProductURLsFile,
		OutputDir:       cfg.Scan.OutputDir,
		TopN:            cfg.Scan.TopN,
		MinNowPrice:     cfg.MinNowPrice(),
		Timeout:         cfg.ScanTimeout(),
	})

	if !*serve {
		log.Println("[INFO] PriceSentinel single scan")
		res, err := sched.RunScan(ctx, scheduler.ScanRequest{OutPrefix: cfg.Scan.OutPrefix})
		// an interrupted scan still reports what it collected
		if res != nil {
			for _, line := range report.SummaryLines(res.Report.Summary) {
				fmt.Println(line)
			}
			for _, f := range res.Files {
				fmt.Println("Wrote", f)
			}
		}
		if err != nil {
			renderer.Close()
			log.Fatalf("[FATAL] scan: %v", err)
		}
		return
	}

	log.Println("[INFO] PriceSentinel starting...")
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, running scan")
		sched.HandleCommand("/scan")
	}

	srv := server.New(sched, rec, cfg.SiteLayout(), cfg.Scan.OutputDir)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		log.Printf("[ERROR] %v", err)
	}
	log.Println("[INFO] shutting down...")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
