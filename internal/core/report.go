package core

import "time"

// CollectionReport is the metadata of one company collection run, as stored
// in the run history and published as an event.
type CollectionReport struct {
	Company     string
	Generation  uint64
	Records     int
	OpenRecords int
	OpenTotal   float64
	StatusCode  int
	Error       string
	Duration    time.Duration
	CollectedAt time.Time
}

func NewCollectionReport(res CompanyResult, generation uint64, at time.Time) CollectionReport {
	s := Summarize(res.Records)
	r := CollectionReport{
		Company:     res.Company,
		Generation:  generation,
		Records:     len(res.Records),
		OpenRecords: s.Count,
		OpenTotal:   s.Total,
		Duration:    res.Duration,
		CollectedAt: at,
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
		r.StatusCode = StatusCode(res.Err)
	}
	return r
}

// Failed reports whether the run ended with an error.
func (r CollectionReport) Failed() bool {
	return r.Error != ""
}
