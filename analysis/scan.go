package analysis

import (
	"fmt"
	"strings"

	"github.com/hubenschmidt/go-reviewgraph/core"
)

// logicalLine is one Python statement line, possibly spanning several
// physical lines. Comments are dropped and string literal bodies are
// replaced by an empty "" pair.
type logicalLine struct {
	start  int
	end    int
	indent int
	code   string
}

func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.Split(source, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func indentWidth(line string) int {
	width := 0
	for _, c := range line {
		switch c {
		case ' ':
			width++
		case '\t':
			width = (width/8 + 1) * 8
		case '\f':
			width = 0
		default:
			return width
		}
	}
	return width
}

func syntaxError(line int, msg string) error {
	return fmt.Errorf("%w: line %d: %s", core.ErrSyntax, line, msg)
}

func scanLogicalLines(source string) ([]logicalLine, error) {
	lines := splitLines(source)

	var (
		out   []logicalLine
		cur   *logicalLine
		buf   strings.Builder
		depth int
		quote string
	)

	for i, raw := range lines {
		lineno := i + 1

		if cur == nil {
			trimmed := strings.TrimLeft(raw, " \t\f")
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			cur = &logicalLine{start: lineno, indent: indentWidth(raw)}
			buf.Reset()
		}

		joined := false
		for j := 0; j < len(raw); j++ {
			c := raw[j]

			if quote != "" {
				if c == '\\' {
					if j+1 >= len(raw) {
						joined = true
					}
					j++
					continue
				}
				if strings.HasPrefix(raw[j:], quote) {
					buf.WriteByte('"')
					j += len(quote) - 1
					quote = ""
				}
				continue
			}

			switch c {
			case '#':
				j = len(raw)
			case '"', '\'':
				triple := strings.Repeat(string(c), 3)
				if strings.HasPrefix(raw[j:], triple) {
					quote = triple
					j += 2
				} else {
					quote = string(c)
				}
				buf.WriteByte('"')
			case '(', '[', '{':
				depth++
				buf.WriteByte(c)
			case ')', ']', '}':
				depth--
				if depth < 0 {
					return nil, syntaxError(lineno, fmt.Sprintf("unmatched '%c'", c))
				}
				buf.WriteByte(c)
			case '\\':
				if j == len(raw)-1 {
					joined = true
				} else {
					buf.WriteByte(c)
				}
			default:
				buf.WriteByte(c)
			}
		}

		if len(quote) == 1 && !joined {
			return nil, syntaxError(lineno, "unterminated string literal")
		}

		if quote != "" || depth > 0 || joined {
			buf.WriteByte(' ')
			continue
		}

		cur.end = lineno
		cur.code = strings.TrimSpace(buf.String())
		out = append(out, *cur)
		cur = nil
	}

	if cur != nil {
		switch {
		case quote != "":
			return nil, syntaxError(cur.start, "unterminated string literal")
		case depth > 0:
			return nil, syntaxError(cur.start, "unclosed bracket")
		default:
			return nil, syntaxError(cur.start, "unexpected end of input after line continuation")
		}
	}

	return out, nil
}
