package amqp

import (
	"encoding/json"
	"time"

	"boletos/internal/core"
)

// CollectionEvent is published after every company collection run.
type CollectionEvent struct {
	Company     string    `json:"company"`
	Generation  uint64    `json:"generation"`
	Records     int       `json:"records"`
	OpenRecords int       `json:"open_records"`
	OpenTotal   float64   `json:"open_total"`
	StatusCode  int       `json:"status_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CollectedAt time.Time `json:"collected_at"`
}

func NewCollectionEvent(r core.CollectionReport) *CollectionEvent {
	return &CollectionEvent{
		Company:     r.Company,
		Generation:  r.Generation,
		Records:     r.Records,
		OpenRecords: r.OpenRecords,
		OpenTotal:   r.OpenTotal,
		StatusCode:  r.StatusCode,
		Error:       r.Error,
		DurationMS:  r.Duration.Milliseconds(),
		CollectedAt: r.CollectedAt,
	}
}

// Report converts the event back into a run report.
func (e *CollectionEvent) Report() core.CollectionReport {
	return core.CollectionReport{
		Company:     e.Company,
		Generation:  e.Generation,
		Records:     e.Records,
		OpenRecords: e.OpenRecords,
		OpenTotal:   e.OpenTotal,
		StatusCode:  e.StatusCode,
		Error:       e.Error,
		Duration:    time.Duration(e.DurationMS) * time.Millisecond,
		CollectedAt: e.CollectedAt,
	}
}

func (e *CollectionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func CollectionEventFromJSON(data []byte) (*CollectionEvent, error) {
	var e CollectionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
