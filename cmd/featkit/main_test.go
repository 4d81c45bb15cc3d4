package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/gofeat/internal/store"
)

const testGrammar = `%start S
S -> NP[num=?n] VP[num=?n]
NP[num=?n] -> Det[num=?n] N[num=?n]
VP[num=?n] -> IV[num=?n]
Det[num=sg] -> 'this'
Det[num=pl] -> 'these'
N[num=sg] -> 'dog'
N[num=pl] -> 'dogs'
`

const testLexicon = `# verbs
runs : [*type*='IV', num='sg']
run  : [*type*='IV', num='pl']
cat  : [*type*='N', num='sg']
`

type harness struct {
	fs     *mem.FS
	store  store.Storer
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs, err := mem.NewFS()
	require.NoError(t, err)
	for name, text := range map[string]string{
		"agr.fcfg":     testGrammar,
		"verbs.lex":    testLexicon,
		"batch.txt":    "this dog runs\n\nthese dogs run\nthis dogs run\n",
		"featkit.yaml": "workers: 2\nlog: off\n",
	} {
		require.NoError(t, hackpadfs.WriteFullFile(fs, name, []byte(text), 0644))
	}
	return &harness{fs: fs, store: store.NewMemStore()}
}

// run executes one featkit invocation and returns its standard output.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	c := &Cmd{FS: h.fs, Store: h.store, Stdout: &h.stdout, Stderr: &h.stderr}
	err := c.Main(context.Background(), args)
	return h.stdout.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "featkit %s\nstderr: %s", strings.Join(args, " "), h.stderr.String())
	return out
}

func TestUnifyShort(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "unify", "-short", "[a=?x, b=?x]", "[a=1]")
	assert.Equal(t, "[a=1, b=1]\n<Bindings: ?x=1>\n", out)

	out = h.mustRun(t, "unify", "-short", "[a=1]", "[a=2]")
	assert.Equal(t, "(FAILED)\n", out)
}

func TestUnifyDisplay(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "unify", "[a=1]", "[b=2]")
	assert.Contains(t, out, "+-----UNIFY-----+")
	assert.Contains(t, out, "[ a = 1 ]")
	assert.Contains(t, out, "[ b = 2 ]")
}

func TestUnifyTrace(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "-log", "off", "unify", "-trace", "-short", "[a=[b=1]]", "[a=[b=2]]")
	assert.Contains(t, h.stderr.String(), "conflict")
}

func TestUnifyUsage(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "unify", "[a=1]")
	assert.ErrorIs(t, err, errUsage)

	_, err = h.run(t, "unify", "[a=1", "[b=2]")
	assert.ErrorContains(t, err, "Expected")

	_, err = h.run(t, "unify", "-help")
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, h.stderr.String(), "usage: featkit unify")
}

func TestSubsumesAndFvm(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "true\n", h.mustRun(t, "subsumes", "[a=1]", "[a=1, b=2]"))
	assert.Equal(t, "false\n", h.mustRun(t, "subsumes", "[a=1, b=2]", "[a=1]"))

	out := h.mustRun(t, "fvm", "[a=1, b=2]")
	assert.Equal(t, "[ a = 1 ]\n[ b = 2 ]\n", out)
}

func TestMainErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = h.run(t, "frobnicate")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, h.stderr.String(), "unify")

	_, err = h.run(t, "-workers", "zero", "config")
	assert.ErrorContains(t, err, "-workers")

	_, err = h.run(t, "-config", "missing.yaml", "config")
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "-config", "featkit.yaml", "-trace", "config")
	assert.Contains(t, out, "workers: 2")
	assert.Contains(t, out, "log: \"off\"")
	assert.Contains(t, out, "trace: true")
}

func TestParseCommand(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "parse", "-grammar", "agr.fcfg", "this", "dog")
	assert.Equal(t, "(no parse)\n", out)

	_, err := h.run(t, "parse", "this", "dog")
	assert.ErrorIs(t, err, errUsage)

	_, err = h.run(t, "parse", "-grammar", "agr.fcfg")
	assert.ErrorIs(t, err, errUsage)
}

func TestParseStoredGrammar(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "agr v1\n", h.mustRun(t, "grammar", "save", "-name", "agr", "agr.fcfg"))
	assert.Equal(t, "verbs.lex: 3 entries\n", h.mustRun(t, "lexicon", "import", "verbs.lex"))

	out := h.mustRun(t, "parse", "-name", "agr", "this", "dog", "runs")
	assert.Equal(t,
		"(S (NP[num='sg'] (Det[num='sg'] this) (N[num='sg'] dog)) (VP[num='sg'] (IV[num='sg'] runs)))\n",
		out)

	out = h.mustRun(t, "parse", "-name", "agr", "-batch", "batch.txt")
	assert.Equal(t, strings.Join([]string{
		"# this dog runs",
		"(S (NP[num='sg'] (Det[num='sg'] this) (N[num='sg'] dog)) (VP[num='sg'] (IV[num='sg'] runs)))",
		"# these dogs run",
		"(S (NP[num='pl'] (Det[num='pl'] these) (N[num='pl'] dogs)) (VP[num='pl'] (IV[num='pl'] run)))",
		"# this dogs run",
		"(no parse)",
	}, "\n")+"\n", out)

	_, err := h.run(t, "parse", "-name", "nope", "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLexiconCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "lexicon", "import", "-source", "verbs", "verbs.lex")

	out := h.mustRun(t, "lexicon", "lookup", "Runs", "walks")
	assert.Equal(t, "runs : [*type*='IV', num='sg']\nwalks : (unknown)\n", out)

	out = h.mustRun(t, "lexicon", "match", "[num='sg']")
	assert.Equal(t, "cat : [*type*='N', num='sg']\nruns : [*type*='IV', num='sg']\n", out)

	entries, err := h.store.ListEntries("run")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "verbs", entries[0].Source)

	_, err = h.run(t, "lexicon")
	assert.ErrorIs(t, err, errUsage)
	_, err = h.run(t, "lexicon", "export")
	assert.ErrorIs(t, err, errUsage)
}

func TestGrammarCommands(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, hackpadfs.WriteFullFile(h.fs, "v2.fcfg", []byte("S -> 'hi' NP\nNP -> 'there'\n"), 0644))
	require.NoError(t, hackpadfs.WriteFullFile(h.fs, "bad.fcfg", []byte("S NP\n"), 0644))

	h.mustRun(t, "grammar", "save", "-name", "g", "agr.fcfg")
	assert.Equal(t, "g v2\n", h.mustRun(t, "grammar", "save", "-name", "g", "-reason", "greeting", "v2.fcfg"))

	assert.Equal(t, "S -> 'hi' NP\nNP -> 'there'\n", h.mustRun(t, "grammar", "show", "-name", "g"))
	assert.Equal(t, testGrammar, h.mustRun(t, "grammar", "show", "-name", "g", "-version", "1"))

	h.mustRun(t, "grammar", "restore", "-name", "g", "1")
	assert.Equal(t, testGrammar, h.mustRun(t, "grammar", "show", "-name", "g"))
	assert.Equal(t, "* v3\trestore v1\n  v2\tgreeting\n  v1\t\n", h.mustRun(t, "grammar", "history", "-name", "g"))
	assert.Equal(t, "g v3\n", h.mustRun(t, "grammar", "list"))

	_, err := h.run(t, "grammar", "save", "-name", "g", "bad.fcfg")
	assert.ErrorContains(t, err, "bad.fcfg")

	_, err = h.run(t, "grammar", "show", "-name", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = h.run(t, "grammar", "restore", "-name", "g", "nine")
	assert.ErrorIs(t, err, errUsage)
}
