package analysis

import (
	"regexp"
	"sort"
)

var (
	defPattern   = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// decisionKeywords each add one to a function's cyclomatic complexity.
// Comprehension and conditional-expression forms are covered by "for"/"if".
var decisionKeywords = map[string]bool{
	"if":     true,
	"elif":   true,
	"for":    true,
	"while":  true,
	"except": true,
	"with":   true,
	"assert": true,
	"and":    true,
	"or":     true,
}

type FunctionInfo struct {
	Name       string `json:"name"`
	Lineno     int    `json:"lineno"`
	EndLineno  int    `json:"end_lineno"`
	Complexity int    `json:"complexity"`
	Length     int    `json:"length"`
	Rank       string `json:"rank"`
}

// Rank maps a cyclomatic complexity score onto the A-F scale.
func Rank(complexity int) string {
	switch {
	case complexity <= 5:
		return "A"
	case complexity <= 10:
		return "B"
	case complexity <= 20:
		return "C"
	case complexity <= 30:
		return "D"
	case complexity <= 40:
		return "E"
	default:
		return "F"
	}
}

// ExtractFunctions returns every function and method defined in source,
// nested ones included, ordered by line. Complexity counts only the
// function's own body; nested function bodies are scored separately.
func ExtractFunctions(source string) ([]FunctionInfo, error) {
	lines, err := scanLogicalLines(source)
	if err != nil {
		return nil, err
	}

	var funcs []FunctionInfo
	for i, line := range lines {
		m := defPattern.FindStringSubmatch(line.code)
		if m == nil {
			continue
		}

		bodyEnd := blockEnd(lines, i)
		end := line.end
		if bodyEnd > i+1 {
			end = lines[bodyEnd-1].end
		}

		complexity := 1 + countDecisions(headerRemainder(line.code))
		for k := i + 1; k < bodyEnd; k++ {
			if defPattern.MatchString(lines[k].code) {
				k = blockEnd(lines, k) - 1
				continue
			}
			complexity += countDecisions(lines[k].code)
		}

		funcs = append(funcs, FunctionInfo{
			Name:       m[1],
			Lineno:     line.start,
			EndLineno:  end,
			Complexity: complexity,
			Length:     end - line.start + 1,
			Rank:       Rank(complexity),
		})
	}

	sort.SliceStable(funcs, func(a, b int) bool {
		return funcs[a].Lineno < funcs[b].Lineno
	})
	return funcs, nil
}

// blockEnd returns the index one past the last line indented deeper than
// lines[i].
func blockEnd(lines []logicalLine, i int) int {
	k := i + 1
	for k < len(lines) && lines[k].indent > lines[i].indent {
		k++
	}
	return k
}

// headerStart returns the index of the colon closing a def header, or
// len(code) when none is found.
func headerStart(code string) int {
	depth := 0
	seenParams := false
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				seenParams = true
			}
		case ':':
			if depth == 0 && seenParams {
				return i
			}
		}
	}
	return len(code)
}

// headerRemainder returns the statement text following a def header on the
// same line, as in "def f(): return a or b".
func headerRemainder(code string) string {
	i := headerStart(code)
	if i >= len(code) {
		return ""
	}
	return code[i+1:]
}

func countDecisions(code string) int {
	n := 0
	for _, tok := range identPattern.FindAllString(code, -1) {
		if decisionKeywords[tok] {
			n++
		}
	}
	return n
}
