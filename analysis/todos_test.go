package analysis

import (
	"testing"

	"github.com/hubenschmidt/go-reviewgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTodosAndPrints(t *testing.T) {
	src := `def main():
    print("hello")  # TODO: remove
    value = compute()
    print(value)
    log = "print(x)"
    # FIXME handle errors
    return value
x = print
`
	findings, err := FindTodosAndPrints(src)
	require.NoError(t, err)

	assert.Equal(t, []Finding{
		{Lineno: 2, Message: PrintMessage},
		{Lineno: 4, Message: PrintMessage},
		{Lineno: 2, Message: `print("hello")  # TODO: remove`},
		{Lineno: 6, Message: "# FIXME handle errors"},
	}, findings)
}

func TestFindTodosAndPrints_Clean(t *testing.T) {
	findings, err := FindTodosAndPrints("def ok():\n    return 1\n")
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestFindTodosAndPrints_SyntaxError(t *testing.T) {
	_, err := FindTodosAndPrints("print('x'\n# TODO\n")
	assert.ErrorIs(t, err, core.ErrSyntax)
}

func TestSourceHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SourceHash(""))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SourceHash("abc"))
}
