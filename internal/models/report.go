package models

// Stage identifies the ingestion stage at which an item failed.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageChunk     Stage = "chunk"
	StageEmbed     Stage = "embed"
	StagePersist   Stage = "persist"
)

// Failure records a single skipped or failed item during an ingestion run.
type Failure struct {
	Stage  Stage  `json:"stage"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Report summarizes an ingestion run. Per-record and per-batch failures are
// collected here; the run itself succeeds partially rather than aborting.
type Report struct {
	RecordsRead int       `json:"records_read"`
	Normalized  int       `json:"normalized"`
	Chunked     int       `json:"chunked"`
	Embedded    int       `json:"embedded"`
	Persisted   int       `json:"persisted"`
	Failures    []Failure `json:"failures,omitempty"`
}

// Fail appends a failure for the given stage and item.
func (r *Report) Fail(stage Stage, id string, err error) {
	r.Failures = append(r.Failures, Failure{Stage: stage, ID: id, Reason: err.Error()})
}

// Failed reports the number of collected failures.
func (r *Report) Failed() int {
	return len(r.Failures)
}
