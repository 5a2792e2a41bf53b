package output

// Lifecycle event types.
const (
	EventRunStarted   = "run.started"
	EventRepoStarted  = "repo.started"
	EventRepoFinished = "repo.finished"
	EventRepoFailed   = "repo.failed"
	EventFixFinished  = "fix.finished"
	EventFixFailed    = "fix.failed"
	EventRunFinished  = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - repo.started
// - repo.finished / repo.failed
// - fix.finished / fix.failed
// - run.finished
//
// JSON mode folds the same events into a Summary.
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
	Time  string `json:"time,omitempty"`
	Repo  string `json:"repo,omitempty"`
	*RepoSummary
	Repos    int `json:"repos,omitempty"`
	ExitCode int `json:"exit_code,omitempty"`
}

// RepoSummary carries the per-repository payload of repo.* and fix.* events.
type RepoSummary struct {
	Outcome        string   `json:"outcome,omitempty"`
	Errors         int      `json:"errors"`
	Warnings       int      `json:"warnings"`
	ErrorKind      string   `json:"error_kind,omitempty"`
	Error          string   `json:"error,omitempty"`
	Branch         string   `json:"branch,omitempty"`
	PullRequestURL string   `json:"pull_request_url,omitempty"`
	Files          []string `json:"files,omitempty"`
}
