package recorder

import (
	"time"

	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// RunSnapshot holds one finished scan and its product records.
type RunSnapshot struct {
	Run     model.RunInfo
	Records []model.ProductRecord
}

// PricePoint is one observation of a product across runs.
type PricePoint struct {
	RunID      string              `json:"run_id"`
	At         time.Time           `json:"at"`
	Status     string              `json:"status"`
	NowPrice   decimal.NullDecimal `json:"now_price"`
	Min3mPrice decimal.NullDecimal `json:"min_3m_price"`
	Suspicious bool                `json:"suspicious"`
}

// Recorder persists scan history for later analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	RecentRuns(limit int) ([]model.RunInfo, error)
	ProductHistory(url string, limit int) ([]PricePoint, error)
	Close() error
}
