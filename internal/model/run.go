package model

import "time"

// RunStatus represents the current state of a harvest run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusDiscovering RunStatus = "discovering"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusComplete    RunStatus = "complete"
	RunStatusPartial     RunStatus = "partial"
	RunStatusFailed      RunStatus = "failed"
)

// Outcome is the caller-visible exit classification of a run. A partial
// outcome means the run finished but recorded failures (or was cancelled
// mid-flight); failed means discovery never yielded a single reference.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
	OutcomeFailed   Outcome = "failed"
)

// Failure stages.
const (
	StageDiscovery = "discovery"
	StageExtract   = "extract"
)

// Failure kinds. Fetch-layer kinds mirror the transport error taxonomy;
// extract-layer kinds mirror the parse error taxonomy.
const (
	FailureKindTimeout          = "timeout"
	FailureKindHTTPStatus       = "http_status"
	FailureKindNetwork          = "network"
	FailureKindMissingIdentity  = "missing_identity"
	FailureKindMalformedPayload = "malformed_payload"
	FailureKindInternal         = "internal"
)

// HarvestParams are the caller-supplied inputs of one run.
type HarvestParams struct {
	Keyword     string `json:"keyword"`
	MaxProfiles int    `json:"max_profiles"`
	MaxPages    int    `json:"max_pages"`
}

// Failure records one attributable extraction or discovery failure. For
// discovery failures Ref carries only the page number that failed.
type Failure struct {
	Ref      ProfileRef `json:"ref"`
	Stage    string     `json:"stage"`
	Kind     string     `json:"kind"`
	Message  string     `json:"message"`
	Attempts int        `json:"attempts,omitempty"`
}

// HarvestResult is the final output of a run: the ordered record sequence
// plus the failure report. Both are always returned together; the caller
// decides whether a partial run is acceptable.
type HarvestResult struct {
	Keyword      string    `json:"keyword"`
	Outcome      Outcome   `json:"outcome"`
	Records      []Record  `json:"records"`
	Failures     []Failure `json:"failures"`
	Discovered   int       `json:"discovered"`
	PagesFetched int       `json:"pages_fetched"`
	DurationMS   int64     `json:"duration_ms"`
	Cancelled    bool      `json:"cancelled,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// HarvestRun is one archived harvest execution.
type HarvestRun struct {
	ID        string         `json:"id"`
	Keyword   string         `json:"keyword"`
	Params    HarvestParams  `json:"params"`
	Status    RunStatus      `json:"status"`
	Result    *HarvestResult `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// StatusForOutcome maps a result outcome to the terminal run status.
func StatusForOutcome(o Outcome) RunStatus {
	switch o {
	case OutcomeComplete:
		return RunStatusComplete
	case OutcomePartial:
		return RunStatusPartial
	default:
		return RunStatusFailed
	}
}
