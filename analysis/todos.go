package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const PrintMessage = "print statement"

var printPattern = regexp.MustCompile(`^print\s*\(`)

// Finding is a line-level observation.
type Finding struct {
	Lineno  int    `json:"lineno"`
	Message string `json:"message"`
}

// FindTodosAndPrints reports statement-level print calls followed by every
// line mentioning TODO or FIXME. The source must scan cleanly.
func FindTodosAndPrints(source string) ([]Finding, error) {
	lines, err := scanLogicalLines(source)
	if err != nil {
		return nil, err
	}

	var prints []Finding
	for _, line := range lines {
		if printPattern.MatchString(line.code) {
			prints = append(prints, Finding{Lineno: line.start, Message: PrintMessage})
		}
	}

	results := prints
	for i, line := range splitLines(source) {
		if strings.Contains(line, "TODO") || strings.Contains(line, "FIXME") {
			results = append(results, Finding{Lineno: i + 1, Message: strings.TrimSpace(line)})
		}
	}
	return results, nil
}

// SourceHash returns the hex-encoded SHA-256 of source.
func SourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
