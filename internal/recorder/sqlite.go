package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the HTTP surface can read history while a scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			categories    TEXT,
			out_prefix    TEXT,
			total         INTEGER,
			complete      INTEGER,
			partial       INTEGER,
			miss          INTEGER,
			render_failed INTEGER,
			suspicious    INTEGER,
			filtered      INTEGER,
			ranked        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS product_records (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES runs(id),
			url           TEXT NOT NULL,
			category      TEXT,
			title         TEXT,
			status        TEXT,
			min_3m_price  REAL,
			min_3m_date   TEXT,
			now_price     REAL,
			min_30d_price REAL,
			delta_3m      REAL,
			pct_3m        REAL,
			delta_30d     REAL,
			pct_30d       REAL,
			suspicious    INTEGER,
			filtered      INTEGER,
			reasons       TEXT,
			notes         TEXT,
			error         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON product_records(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_url ON product_records(url)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run row and all of its product records in one
// transaction. Undefined values are stored as NULL.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cats, err := json.Marshal(snap.Run.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	s := snap.Run.Summary
	_, err = tx.Exec(`INSERT INTO runs
		(id, started_at, finished_at, categories, out_prefix,
		 total, complete, partial, miss, render_failed, suspicious, filtered, ranked)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.Run.ID, snap.Run.StartedAt.Unix(), snap.Run.FinishedAt.Unix(), string(cats), snap.Run.OutPrefix,
		s.Total, s.Full, s.Partial, s.Miss, s.RenderFailed, s.Suspicious, s.Filtered, s.Ranked,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO product_records
		(run_id, url, category, title, status,
		 min_3m_price, min_3m_date, now_price, min_30d_price,
		 delta_3m, pct_3m, delta_30d, pct_30d,
		 suspicious, filtered, reasons, notes, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range snap.Records {
		_, err := stmt.Exec(
			snap.Run.ID, rec.Candidate.URL, rec.Candidate.SourceCategory, rec.Title, string(rec.Status),
			nullFloat(rec.Fields.Min3mPrice), nullDate(rec.Fields.Min3mDate),
			nullFloat(rec.Fields.NowPrice), nullFloat(rec.Fields.Min30dPrice),
			nullFloat(rec.Metrics.Delta3m), nullFloat(rec.Metrics.Pct3m),
			nullFloat(rec.Metrics.Delta30d), nullFloat(rec.Metrics.Pct30d),
			rec.Flag.Suspicious, rec.Filtered,
			strings.Join(rec.Flag.Reasons, "; "), strings.Join(rec.Notes, "; "), rec.Error,
		)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Candidate.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]model.RunInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, started_at, finished_at, categories, out_prefix,
		total, complete, partial, miss, render_failed, suspicious, filtered, ranked
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunInfo
	for rows.Next() {
		var (
			run               model.RunInfo
			started, finished int64
			cats              string
		)
		s := &run.Summary
		if err := rows.Scan(&run.ID, &started, &finished, &cats, &run.OutPrefix,
			&s.Total, &s.Full, &s.Partial, &s.Miss, &s.RenderFailed, &s.Suspicious, &s.Filtered, &s.Ranked); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.Unix(started, 0)
		run.FinishedAt = time.Unix(finished, 0)
		if cats != "" {
			if err := json.Unmarshal([]byte(cats), &run.Categories); err != nil {
				log.Printf("[WARN] run %s has unreadable categories: %v", run.ID, err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ProductHistory returns the observations of url, newest first.
func (r *SQLiteRecorder) ProductHistory(url string, limit int) ([]PricePoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`SELECT p.run_id, r.started_at, p.status, p.now_price, p.min_3m_price, p.suspicious
		FROM product_records p JOIN runs r ON r.id = p.run_id
		WHERE p.url = ? ORDER BY r.started_at DESC, p.id DESC LIMIT ?`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var (
			pt       PricePoint
			at       int64
			now, low sql.NullFloat64
		)
		if err := rows.Scan(&pt.RunID, &at, &pt.Status, &now, &low, &pt.Suspicious); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		pt.At = time.Unix(at, 0)
		pt.NowPrice = fromNullFloat(now)
		pt.Min3mPrice = fromNullFloat(low)
		points = append(points, pt)
	}
	return points, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func nullFloat(v decimal.NullDecimal) sql.NullFloat64 {
	if !v.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.Decimal.InexactFloat64(), Valid: true}
}

func fromNullFloat(v sql.NullFloat64) decimal.NullDecimal {
	if !v.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(v.Float64))
}

func nullDate(t sql.NullTime) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Time.Format("2006-01-02"), Valid: true}
}
