package analysis

import (
	"testing"

	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModule = `import os


def classify(items, limit=10):
    """Classify items.

    if this were code it would count
    """
    result = []
    for item in items:
        if item > limit and item % 2 == 0:
            result.append("big-even")
        elif item < 0 or item is None:
            result.append("neg")
        else:
            result.append("other")
    while result:
        try:
            result.pop()
        except IndexError:
            break
    return [x for x in result if x]


async def fetch(url):
    async with session() as s:
        return await s.get(url)


class Greeter:
    def greet(self, name):
        def inner():
            if name:
                return name
            return "anon"
        return inner()
`

func TestExtractFunctions_SimpleFunction(t *testing.T) {
	funcs, err := ExtractFunctions("def add(a,b):\n    return a+b\n# TODO: types")
	require.NoError(t, err)
	require.Len(t, funcs, 1)

	assert.Equal(t, FunctionInfo{
		Name:       "add",
		Lineno:     1,
		EndLineno:  2,
		Complexity: 1,
		Length:     2,
		Rank:       "A",
	}, funcs[0])
}

func TestExtractFunctions_Module(t *testing.T) {
	funcs, err := ExtractFunctions(sampleModule)
	require.NoError(t, err)

	names := make([]string, len(funcs))
	for i, f := range funcs {
		names[i] = f.Name
	}
	require.Equal(t, []string{"classify", "fetch", "greet", "inner"}, names)

	classify := funcs[0]
	assert.Equal(t, 4, classify.Lineno)
	assert.Equal(t, 22, classify.EndLineno)
	assert.Equal(t, 19, classify.Length)
	assert.Equal(t, 10, classify.Complexity)
	assert.Equal(t, "B", classify.Rank)

	fetch := funcs[1]
	assert.Equal(t, 25, fetch.Lineno)
	assert.Equal(t, 27, fetch.EndLineno)
	assert.Equal(t, 2, fetch.Complexity)

	greet := funcs[2]
	assert.Equal(t, 31, greet.Lineno)
	assert.Equal(t, 36, greet.EndLineno)
	assert.Equal(t, 1, greet.Complexity, "nested function bodies are scored on their own")

	inner := funcs[3]
	assert.Equal(t, 32, inner.Lineno)
	assert.Equal(t, 35, inner.EndLineno)
	assert.Equal(t, 2, inner.Complexity)
}

func TestExtractFunctions_SingleLineBody(t *testing.T) {
	funcs, err := ExtractFunctions("def pick(a, b): return a or b\n")
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, 2, funcs[0].Complexity)
	assert.Equal(t, 1, funcs[0].Length)
}

func TestExtractFunctions_ContinuationLines(t *testing.T) {
	src := "def long_signature(\n    a,\n    b,\n):\n    total = a + \\\n        b\n    return total\n"
	funcs, err := ExtractFunctions(src)
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, 1, funcs[0].Lineno)
	assert.Equal(t, 7, funcs[0].EndLineno)
}

func TestExtractFunctions_NoFunctions(t *testing.T) {
	funcs, err := ExtractFunctions("x = 1\nprint(x)\n")
	require.NoError(t, err)
	assert.Empty(t, funcs)
}

func TestExtractFunctions_SyntaxErrors(t *testing.T) {
	cases := map[string]string{
		"unclosed bracket":      "def broken(:\n    return (1, 2\n",
		"unmatched bracket":     "x = 1)\n",
		"unterminated string":   "x = \"abc\n",
		"unterminated docblock": "def f():\n    \"\"\"never closed\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractFunctions(src)
			assert.ErrorIs(t, err, core.ErrSyntax)
		})
	}
}

func TestRank(t *testing.T) {
	cases := map[int]string{1: "A", 5: "A", 6: "B", 10: "B", 11: "C", 20: "C", 21: "D", 30: "D", 31: "E", 40: "E", 41: "F"}
	for complexity, want := range cases {
		assert.Equal(t, want, Rank(complexity), "complexity %d", complexity)
	}
}
