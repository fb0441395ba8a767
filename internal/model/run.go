package model

import "time"

// RunSummary counts records by extraction outcome.
type RunSummary struct {
	Total        int `json:"total"`
	Full         int `json:"full"`
	Partial      int `json:"partial"`
	Miss         int `json:"miss"`
	RenderFailed int `json:"render_failed"`
	Suspicious   int `json:"suspicious"`
	Filtered     int `json:"filtered"`
	Ranked       int `json:"ranked"`
}

// Failed counts products that produced no usable field.
func (s RunSummary) Failed() int {
	return s.Miss + s.RenderFailed
}

// RunInfo describes one scan run.
type RunInfo struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Categories []string   `json:"categories"`
	OutPrefix  string     `json:"out_prefix"`
	Summary    RunSummary `json:"summary"`
}
