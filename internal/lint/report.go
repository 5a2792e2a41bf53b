// Package lint runs the external lint engine against a cloned repository and
// models the structured report it produces.
package lint

// Severity values as reported by the engine.
const (
	SeverityWarning = 1
	SeverityError   = 2
)

type Message struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Fatal    bool   `json:"fatal,omitempty"`
}

// FileResult holds the findings for one file. Output is set only in fix mode,
// and only when at least one finding was fixed.
type FileResult struct {
	FilePath            string    `json:"filePath"`
	Messages            []Message `json:"messages"`
	ErrorCount          int       `json:"errorCount"`
	WarningCount        int       `json:"warningCount"`
	FixableErrorCount   int       `json:"fixableErrorCount"`
	FixableWarningCount int       `json:"fixableWarningCount"`
	Output              *string   `json:"output,omitempty"`
}

type Report struct {
	ErrorCount   int          `json:"errorCount"`
	WarningCount int          `json:"warningCount"`
	Results      []FileResult `json:"results"`
}

// NewReport totals the per-file counts.
func NewReport(results []FileResult) *Report {
	r := &Report{Results: results}
	for _, fr := range results {
		if fr.ErrorCount > 0 {
			r.ErrorCount += fr.ErrorCount
		}
		if fr.WarningCount > 0 {
			r.WarningCount += fr.WarningCount
		}
	}
	return r
}

// Fixed returns the results carrying rewritten content, in report order.
func (r *Report) Fixed() []FileResult {
	if r == nil {
		return nil
	}
	var out []FileResult
	for _, fr := range r.Results {
		if fr.Output != nil {
			out = append(out, fr)
		}
	}
	return out
}

func (r *Report) HasFixes() bool {
	return len(r.Fixed()) > 0
}

type Outcome string

const (
	OutcomeClean    Outcome = "clean"
	OutcomeWarnings Outcome = "warnings"
	OutcomeErrors   Outcome = "errors"
)

// Classify ranks errors above warnings above clean.
func Classify(errorCount, warningCount int) Outcome {
	switch {
	case errorCount > 0:
		return OutcomeErrors
	case warningCount > 0:
		return OutcomeWarnings
	default:
		return OutcomeClean
	}
}

func (r *Report) Outcome() Outcome {
	if r == nil {
		return OutcomeClean
	}
	return Classify(r.ErrorCount, r.WarningCount)
}
