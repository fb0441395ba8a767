package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"PriceSentinel/internal/discovery"
	"PriceSentinel/internal/recorder"
	"PriceSentinel/internal/report"
	"PriceSentinel/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// Scanner runs scans. *scheduler.Scheduler implements it.
type Scanner interface {
	RunScan(ctx context.Context, req scheduler.ScanRequest) (*scheduler.RunResult, error)
	Running() bool
	LastRun() *scheduler.RunResult
}

// Server is the HTTP surface for triggering scans and fetching reports.
type Server struct {
	Scanner   Scanner
	Recorder  recorder.Recorder
	Site      discovery.Site
	OutputDir string
	engine    *gin.Engine
}

// New creates a Server with its routes registered. site is used to bring
// product URLs in history queries into their stored form.
func New(sc Scanner, rec recorder.Recorder, site discovery.Site, outputDir string) *Server {
	s := &Server{Scanner: sc, Recorder: rec, Site: site, OutputDir: outputDir}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", s.index)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/run", s.run)
	r.GET("/runs", s.runs)
	r.GET("/history", s.history)
	r.Static("/files", outputDir)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	s.engine = r
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		log.Println("[INFO] http server stopped")
		return nil
	}
}

func (s *Server) index(c *gin.Context) {
	lines := []string{
		"PriceSentinel is up.",
		"POST /run to trigger a scan.",
		"GET  /files/<name> to download output files.",
		"",
	}
	if s.Scanner.Running() {
		lines = append(lines, "A scan is running.", "")
	}
	if last := s.Scanner.LastRun(); last != nil {
		lines = append(lines, fmt.Sprintf("Last scan: %s (%s)", last.Run.ID, last.Run.FinishedAt.Format("2006-01-02 15:04")))
		lines = append(lines, report.SummaryLines(last.Report.Summary)...)
		lines = append(lines, "")
	}

	files, err := s.outputFiles()
	if err != nil {
		log.Printf("[WARN] list output files: %v", err)
	}
	lines = append(lines, "Current files:")
	for _, name := range files {
		lines = append(lines, "- "+name)
	}
	c.String(http.StatusOK, strings.Join(lines, "\n"))
}

func (s *Server) outputFiles() ([]string, error) {
	entries, err := os.ReadDir(s.OutputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Server) run(c *gin.Context) {
	req := scheduler.ScanRequest{
		Categories:  listParam(c, "categories"),
		ProductURLs: listParam(c, "product_urls"),
	}
	if v := c.Query("max_per_category"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.String(http.StatusBadRequest, "max_per_category must be a positive integer")
			return
		}
		req.MaxPerCategory = n
	}

	res, err := s.Scanner.RunScan(c.Request.Context(), req)
	switch {
	case errors.Is(err, scheduler.ErrScanInProgress):
		c.String(http.StatusConflict, "A scan is already running.")
		return
	case errors.Is(err, context.DeadlineExceeded):
		lines := []string{"Timed out while scanning."}
		if res != nil {
			lines = append(lines, resultLines(res)...)
		}
		c.String(http.StatusGatewayTimeout, strings.Join(lines, "\n"))
		return
	case err != nil:
		log.Printf("[ERROR] http scan: %v", err)
		c.String(http.StatusInternalServerError, "Scan failed: "+err.Error())
		return
	}

	lines := append([]string{"Scan finished."}, resultLines(res)...)
	c.String(http.StatusOK, strings.Join(lines, "\n"))
}

func resultLines(res *scheduler.RunResult) []string {
	lines := []string{"Run: " + res.Run.ID}
	lines = append(lines, report.SummaryLines(res.Report.Summary)...)
	lines = append(lines, "--- outputs ---")
	for _, f := range res.Files {
		lines = append(lines, "/files/"+filepath.Base(f))
	}
	return lines
}

// listParam accepts both repeated parameters and comma separated values.
// It returns nil when the parameter is absent so defaults apply.
func listParam(c *gin.Context, key string) []string {
	raw, ok := c.GetQueryArray(key)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) runs(c *gin.Context) {
	limit, ok := limitParam(c, 10)
	if !ok {
		return
	}
	runs, err := s.Recorder.RecentRuns(limit)
	if err != nil {
		log.Printf("[ERROR] recent runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) history(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	url, ok := s.Site.ProductURL(raw)
	if !ok {
		norm, err := discovery.NormalizeURL(raw, s.Site.BaseURL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
			return
		}
		url = norm
	}
	limit, ok := limitParam(c, 50)
	if !ok {
		return
	}
	points, err := s.Recorder.ProductHistory(url, limit)
	if err != nil {
		log.Printf("[ERROR] product history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	c.JSON(http.StatusOK, points)
}

func limitParam(c *gin.Context, def int) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return n, true
}
