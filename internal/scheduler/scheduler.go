package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/discovery"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/notifier"
	"PriceSentinel/internal/recorder"
	"PriceSentinel/internal/report"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// ErrScanInProgress is returned when a scan is requested while another runs.
var ErrScanInProgress = errors.New("scan already in progress")

// ScanRequest describes one scan. Zero values fall back to the defaults.
// A nil Categories uses the default categories; an empty non-nil slice
// disables discovery so only ProductURLs are scanned.
type ScanRequest struct {
	Categories     []string
	MaxPerCategory int
	ProductURLs    []string
	OutPrefix      string
}

// RunResult is the outcome of a finished scan.
type RunResult struct {
	Run    model.RunInfo
	Report *report.Report
	Files  []string
}

// Defaults are the scan settings used when a request leaves them unset.
type Defaults struct {
	Categories      []string
	MaxPerCategory  int
	ProductURLsFile string
	OutputDir       string
	TopN            int
	MinNowPrice     decimal.Decimal
	Timeout         time.Duration
}

// Scheduler runs scans on demand and on a cron schedule.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Site      discovery.Site
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Defaults  Defaults
	Ctx       context.Context

	running atomic.Bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	last    *RunResult
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, site discovery.Site, n notifier.Notifier, rec recorder.Recorder, defaults Defaults) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Site:      site,
		Notifier:  n,
		Recorder:  rec,
		Defaults:  defaults,
		Ctx:       ctx,
	}
}

// Register adds the periodic scan.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scheduledScan); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running scans to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	log.Println("[INFO] scheduler stopped")
}

// Running reports whether a scan is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastRun returns the most recent scan of this process, or nil.
func (s *Scheduler) LastRun() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunScan discovers, collects, ranks and reports. Only one scan runs at a
// time; a concurrent call returns ErrScanInProgress. When ctx ends during
// collection the partial report is still written, and both the result and
// the context error are returned.
func (s *Scheduler) RunScan(ctx context.Context, req ScanRequest) (*RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	started := time.Now()
	req, err := s.withDefaults(req, started)
	if err != nil {
		return nil, err
	}
	if s.Defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Defaults.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	log.Printf("[INFO] scan %s started: categories=%v max=%d explicit=%d", id, req.Categories, req.MaxPerCategory, len(req.ProductURLs))

	set := discovery.NewURLSet()
	d := discovery.NewDiscoverer(s.Collector.Renderer, s.Site, set)
	if n := d.AddExplicit(req.ProductURLs); n > 0 {
		log.Printf("[INFO] %d explicit product URLs", n)
	}
	if _, err := d.Discover(ctx, req.Categories, req.MaxPerCategory); err != nil {
		return nil, fmt.Errorf("discover products: %w", err)
	}
	log.Printf("[INFO] total candidate product URLs: %d", set.Len())

	cands := set.Candidates()
	records := s.Collector.CollectAll(ctx, cands)
	collectErr := ctx.Err()
	if collectErr != nil {
		log.Printf("[WARN] scan %s interrupted after %d/%d products: %v", id, len(records), len(cands), collectErr)
		records = append(records, uncollected(cands[len(records):], collectErr)...)
	}

	rep := report.NewAggregator(s.Defaults.TopN, s.Defaults.MinNowPrice).Aggregate(records)
	files, err := report.WriteFiles(s.Defaults.OutputDir, req.OutPrefix, rep)
	if err != nil {
		return nil, fmt.Errorf("write reports: %w", err)
	}

	res := &RunResult{
		Run: model.RunInfo{
			ID:         id,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Categories: req.Categories,
			OutPrefix:  req.OutPrefix,
			Summary:    rep.Summary,
		},
		Report: rep,
		Files:  files,
	}
	log.Printf("[INFO] scan %s finished: %d products, %d suspicious, %d failed",
		id, rep.Summary.Total, rep.Summary.Suspicious, rep.Summary.Failed())

	if err := s.Recorder.RecordRun(&recorder.RunSnapshot{Run: res.Run, Records: rep.Records}); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}
	s.trySend(notifier.FormatRunDigest(&res.Run, rep, files))

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	if collectErr != nil {
		return res, fmt.Errorf("collect products: %w", collectErr)
	}
	return res, nil
}

// uncollected records the candidates an interrupted scan never reached, so
// they show up as failures in the partial report.
func uncollected(cands []model.ProductCandidate, err error) []model.ProductRecord {
	records := make([]model.ProductRecord, 0, len(cands))
	for _, cand := range cands {
		records = append(records, model.ProductRecord{
			Candidate: cand,
			Matches:   []model.FieldMatch{},
			Flag:      model.FlagResult{Reasons: []string{}},
			Status:    model.StatusRenderFailed,
			Error:     fmt.Sprintf("not collected: %v", err),
			Notes:     []string{"not collected"},
		})
	}
	return records
}

func (s *Scheduler) withDefaults(req ScanRequest, started time.Time) (ScanRequest, error) {
	if req.Categories == nil {
		req.Categories = s.Defaults.Categories
	}
	if req.MaxPerCategory <= 0 {
		req.MaxPerCategory = s.Defaults.MaxPerCategory
	}
	if len(req.ProductURLs) == 0 && s.Defaults.ProductURLsFile != "" {
		urls, err := discovery.ReadURLFile(s.Defaults.ProductURLsFile)
		if err != nil {
			return req, err
		}
		req.ProductURLs = urls
	}
	if req.OutPrefix == "" {
		req.OutPrefix = "prisjakt_" + started.UTC().Format("20060102_150405")
	}
	if filepath.Base(req.OutPrefix) != req.OutPrefix {
		return req, fmt.Errorf("output prefix %q must be a file name", req.OutPrefix)
	}
	return req, nil
}

func (s *Scheduler) scheduledScan() {
	log.Println("[INFO] running scheduled scan")
	if _, err := s.RunScan(s.Ctx, ScanRequest{}); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			log.Println("[WARN] scheduled scan skipped: another scan is running")
			return
		}
		log.Printf("[ERROR] scheduled scan: %v", err)
		s.trySend(fmt.Sprintf("❌ Planlagt skanning feilet: %v", err))
	}
}

// HandleCommand processes a user command and returns a reply.
// Group chats send commands as /scan@botname.
func (s *Scheduler) HandleCommand(command string) string {
	if fields := strings.Fields(command); len(fields) > 0 {
		command, _, _ = strings.Cut(fields[0], "@")
	}
	switch command {
	case "/scan":
		if s.Running() {
			return "⏳ En skanning pågår allerede."
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if _, err := s.RunScan(s.Ctx, ScanRequest{}); err != nil {
				log.Printf("[ERROR] command scan: %v", err)
				s.trySend(fmt.Sprintf("❌ Skanning feilet: %v", err))
			}
		}()
		return "🔎 Skanning startet. Rapporten sendes når den er ferdig."
	case "/last":
		return notifier.FormatRunStatus(s.lastRunInfo())
	default:
		return notifier.FormatHelp()
	}
}

// lastRunInfo prefers the recorder so the answer survives restarts.
func (s *Scheduler) lastRunInfo() *model.RunInfo {
	runs, err := s.Recorder.RecentRuns(1)
	if err != nil {
		log.Printf("[WARN] read recent runs: %v", err)
	}
	if len(runs) > 0 {
		return &runs[0]
	}
	if last := s.LastRun(); last != nil {
		return &last.Run
	}
	return nil
}

// Wait blocks until background scans started by commands have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
