// Package analysis implements the static checks behind the review tools:
// Python function extraction with cyclomatic complexity scoring, TODO/FIXME
// and print-statement detection, source hashing, and an external linter
// wrapper.
//
// The Python scanner is line oriented. It understands indentation, string
// literals (including triple-quoted and prefixed forms), comments, bracket
// nesting and backslash continuations, which is enough to locate function
// boundaries and count decision points without a full parser.
package analysis
