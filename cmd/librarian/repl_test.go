package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/librarian/pkg/librarian"
	"github.com/jingkaihe/librarian/pkg/presenter"
	"github.com/jingkaihe/librarian/pkg/skills"
)

func testLibrarian(t *testing.T, records []skills.Record) *librarian.Librarian {
	t.Helper()
	reg, err := skills.NewRegistry(records)
	require.NoError(t, err)
	return librarian.New(librarian.WithRegistry(reg))
}

func testCatalog() []skills.Record {
	return []skills.Record{
		{ID: "cleanup", Aliases: []string{"clnup"}, Tags: []string{"refactor"}, Dependencies: []string{"detect-smells"}},
		{ID: "detect-smells", Tags: []string{"refactor"}, Dependencies: []string{"parse"}},
		{ID: "parse"},
	}
}

func replSession(t *testing.T, lib *librarian.Librarian, input string) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	p := presenter.NewWithOptions(&out, &errOut, presenter.ColorNever)
	p.SetInput(strings.NewReader(input))

	require.NoError(t, runREPL(context.Background(), lib, p))
	return out.String(), errOut.String()
}

func TestREPL(t *testing.T) {
	lib := testLibrarian(t, testCatalog())

	out, errOut := replSession(t, lib, "clnup\nrefactor\n2\n\nxyzzy\nquit\nparse\n")

	assert.Empty(t, errOut)
	assert.Contains(t, out, "✓ selected cleanup (0.95, alias)")
	assert.Contains(t, out, "phase 1: parse\nphase 2: detect-smells\nphase 3: cleanup\n")
	assert.Contains(t, out, "? did you mean one of:\n  1) cleanup (0.75, tag)\n  2) detect-smells (0.75, tag)\n")
	assert.Contains(t, out, "Select [1/2]: ")
	assert.Contains(t, out, "phase 1: parse\nphase 2: detect-smells\n-")
	assert.Contains(t, out, "please rephrase")
	assert.NotContains(t, out, "selected parse", "input after quit is not read")
}

func TestREPLEndsOnEOF(t *testing.T) {
	lib := testLibrarian(t, testCatalog())

	out, _ := replSession(t, lib, "clnup")
	assert.Contains(t, out, "selected cleanup")
}

func TestREPLExitIgnoresCase(t *testing.T) {
	for _, word := range []string{"EXIT", "Quit", "qUiT"} {
		t.Run(word, func(t *testing.T) {
			lib := testLibrarian(t, testCatalog())

			out, _ := replSession(t, lib, word+"\nclnup\n")
			assert.NotContains(t, out, "selected cleanup")
			assert.NotContains(t, out, "please rephrase", "exit words are not resolved as requests")
		})
	}
}

func TestREPLInvalidChoice(t *testing.T) {
	lib := testLibrarian(t, testCatalog())

	out, _ := replSession(t, lib, "refactor\n9\nexit\n")
	assert.Contains(t, out, "no skill selected")
	assert.NotContains(t, out, "phase 1")
}

func TestREPLCycle(t *testing.T) {
	lib := testLibrarian(t, []skills.Record{
		{ID: "alpha", Dependencies: []string{"beta"}},
		{ID: "beta", Dependencies: []string{"alpha"}},
	})

	out, errOut := replSession(t, lib, "alpha\n")
	assert.Contains(t, out, "selected alpha")
	assert.Contains(t, errOut, "Cannot plan the selected skills: dependency cycle: alpha -> beta -> alpha")
}
