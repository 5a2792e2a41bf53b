package lint

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

var (
	errorLabel   = color.New(color.FgRed).SprintFunc()
	warningLabel = color.New(color.FgYellow).SprintFunc()
	ruleLabel    = color.New(color.Faint).SprintFunc()
	fileLabel    = color.New(color.Underline).SprintFunc()
)

// FormatFindings renders every finding in the report with file paths relative
// to the repository root dir. Files without findings are skipped.
func FormatFindings(dir string, report *Report) string {
	if report == nil {
		return ""
	}
	var b strings.Builder
	for _, fr := range report.Results {
		if len(fr.Messages) == 0 {
			continue
		}
		fmt.Fprintln(&b, fileLabel(relativeTo(dir, fr.FilePath)))
		for _, m := range fr.Messages {
			label := warningLabel("warning")
			if m.Severity == SeverityError || m.Fatal {
				label = errorLabel("error")
			}
			fmt.Fprintf(&b, "  %d:%d  %s  %s", m.Line, m.Column, label, m.Message)
			if m.RuleID != "" {
				fmt.Fprintf(&b, "  %s", ruleLabel(m.RuleID))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	total := report.ErrorCount + report.WarningCount
	if total > 0 {
		fmt.Fprintf(&b, "%d %s (%d %s, %d %s)\n",
			total, plural(total, "problem"),
			report.ErrorCount, plural(report.ErrorCount, "error"),
			report.WarningCount, plural(report.WarningCount, "warning"))
	}
	return b.String()
}

func relativeTo(dir, path string) string {
	if dir == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
