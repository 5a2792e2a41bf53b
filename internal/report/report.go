// Package report turns per-repository results into the operator-facing
// summary: the status table, dry-run diffs and opened pull requests.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"lintfleet/internal/gitrepo"
	"lintfleet/internal/lint"
)

const (
	IconErrors   = "❌"
	IconWarnings = "⚠️"
	IconClean    = "✅"
)

// Entry is one table row.
type Entry struct {
	Repo         string
	ErrorCount   int
	WarningCount int
}

func Icon(errorCount, warningCount int) string {
	switch lint.Classify(errorCount, warningCount) {
	case lint.OutcomeErrors:
		return IconErrors
	case lint.OutcomeWarnings:
		return IconWarnings
	default:
		return IconClean
	}
}

// Generate renders entries as a markdown table, one row per entry in the
// order given.
func Generate(entries []Entry) (string, error) {
	var buf bytes.Buffer
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header([]string{"", "repo", "errors", "warnings"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Header.Formatting.AutoFormat = tw.Off
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignCenter, tw.AlignLeft, tw.AlignCenter, tw.AlignCenter}
	})

	data := make([][]string, 0, len(entries))
	for _, e := range entries {
		data = append(data, []string{
			Icon(e.ErrorCount, e.WarningCount),
			e.Repo,
			strconv.Itoa(e.ErrorCount),
			strconv.Itoa(e.WarningCount),
		})
	}
	if err := table.Bulk(data); err != nil {
		return "", err
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

var (
	addLine  = color.New(color.FgGreen).SprintFunc()
	delLine  = color.New(color.FgRed).SprintFunc()
	hunkLine = color.New(color.FgCyan).SprintFunc()
	metaLine = color.New(color.Bold).SprintFunc()
)

// WriteDiffs prints one repository's dry-run diffs with insertions, deletions
// and hunk headers colored apart.
func WriteDiffs(w io.Writer, repo string, diffs []gitrepo.FileDiff) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", metaLine(repo)); err != nil {
		return err
	}
	for _, d := range diffs {
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			if _, err := fmt.Fprintln(w, colorize(line)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func colorize(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"),
		strings.HasPrefix(line, "diff "), strings.HasPrefix(line, "index "):
		return metaLine(line)
	case strings.HasPrefix(line, "@@"):
		return hunkLine(line)
	case strings.HasPrefix(line, "+"):
		return addLine(line)
	case strings.HasPrefix(line, "-"):
		return delLine(line)
	default:
		return line
	}
}

type PullRequest struct {
	Repo string
	URL  string
}

func WritePullRequests(w io.Writer, prs []PullRequest) error {
	if len(prs) == 0 {
		_, err := fmt.Fprintln(w, "No pull requests were opened.")
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", metaLine("🚀  Opened pull requests:")); err != nil {
		return err
	}
	for _, pr := range prs {
		if _, err := fmt.Fprintf(w, "  %s  %s\n", pr.Repo, pr.URL); err != nil {
			return err
		}
	}
	return nil
}
