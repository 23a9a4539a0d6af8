package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

type LintIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// Linter shells out to a ruff-compatible linter.
type Linter struct {
	command string
	timeout time.Duration
}

func NewLinter(command string, timeout time.Duration) *Linter {
	if command == "" {
		command = "ruff"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Linter{command: command, timeout: timeout}
}

func (l *Linter) Command() string {
	return l.command
}

// Available reports whether the linter binary can be found.
func (l *Linter) Available() bool {
	_, err := exec.LookPath(l.command)
	return err == nil
}

// Lint writes source to a temporary .py file and runs
// "<command> check --output-format json" on it. A missing binary yields no
// issues. Exit status 0 (clean) and 1 (issues found) are both successes.
func (l *Linter) Lint(ctx context.Context, source string) ([]LintIssue, error) {
	if !l.Available() {
		return nil, nil
	}

	tmp, err := os.CreateTemp("", "review-*.py")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.command, "check", "--output-format", "json", tmp.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return nil, fmt.Errorf("run %s: %w: %s", l.command, err, strings.TrimSpace(stderr.String()))
		}
	}

	return parseLintOutput(stdout.Bytes())
}

type rawLintIssue struct {
	Code     *string `json:"code"`
	Message  string  `json:"message"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
		Col    int `json:"col"`
	} `json:"location"`
}

func (r rawLintIssue) issue() LintIssue {
	issue := LintIssue{
		Message: r.Message,
		Line:    r.Location.Row,
		Column:  r.Location.Column,
	}
	if r.Code != nil {
		issue.Code = *r.Code
	}
	if issue.Column == 0 {
		issue.Column = r.Location.Col
	}
	return issue
}

// parseLintOutput accepts either a flat JSON array of issues or an object
// keyed by filename.
func parseLintOutput(data []byte) ([]LintIssue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var flat []rawLintIssue
	if err := json.Unmarshal(data, &flat); err == nil {
		issues := make([]LintIssue, 0, len(flat))
		for _, r := range flat {
			issues = append(issues, r.issue())
		}
		return issues, nil
	}

	var byFile map[string][]rawLintIssue
	if err := json.Unmarshal(data, &byFile); err != nil {
		return nil, fmt.Errorf("parse linter output: %w", err)
	}
	var issues []LintIssue
	for _, items := range byFile {
		for _, r := range items {
			issues = append(issues, r.issue())
		}
	}
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Line != issues[b].Line {
			return issues[a].Line < issues[b].Line
		}
		return issues[a].Column < issues[b].Column
	})
	return issues, nil
}
