package ledger

import "time"

// RunStatus describes the lifecycle of one batch invocation.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RowStatus describes the recorded outcome for a single row.
type RowStatus string

const (
	RowStatusGenerated RowStatus = "generated"
	RowStatusFailed    RowStatus = "failed"
)

// Run records one invocation of the batch processor.
type Run struct {
	ID          string
	InputPath   string
	SheetName   string
	OutputPath  string
	Status      RunStatus
	RowCount    int
	ErrorDetail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinishedAt  *time.Time
}

// RowResult records the outcome for one spreadsheet row within a run. The
// generated text for successful rows is kept so failed-row reruns can reuse
// it instead of paying for the API call again.
type RowResult struct {
	RunID         string
	RowIndex      int
	Title         string
	Status        RowStatus
	Strategy      string
	GeneratedText string
	ErrorKind     string
	ErrorDetail   string
	UpdatedAt     time.Time
}

// RowCounts aggregates per-status row totals for a run.
type RowCounts struct {
	Generated int
	Failed    int
}

func (s RunStatus) String() string { return string(s) }

func (s RowStatus) String() string { return string(s) }
