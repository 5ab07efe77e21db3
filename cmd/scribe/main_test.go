package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const worldFile = "testdata/world.yaml"

// runCLI runs the CLI in-process and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--log-level", "error"}, args...)
	err := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

// inMemory runs a command against a fresh in-memory store seeded with
// the test world, as alice.
func inMemory(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", append([]string{"--db", memoryDB, "--world", worldFile, "-c", "alice"}, args...)...)
	require.NoError(t, err)
	return out
}

// onDisk runs a command against a SQLite file, as alice.
func onDisk(t *testing.T, db, stdin string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, stdin, append([]string{"--db", db, "-c", "alice"}, args...)...)
	require.NoError(t, err)
	return out
}

func TestRender(t *testing.T) {
	out := inMemory(t, "render", "{$title} has {$gold} gold in {#season}.")
	assert.Equal(t, "Knight has 12 gold in winter.\n", out)
}

func TestCheck(t *testing.T) {
	assert.Equal(t, "true\n", inMemory(t, "check", "$gold >= 10"))
	assert.Equal(t, "false\n", inMemory(t, "check", "$gold > 100"))
}

func TestChallenge(t *testing.T) {
	out := inMemory(t, "challenge", "--roll", "45", "$stealth >> 50 [margin:20]")
	assert.Equal(t, "success chance=70 roll=45\n", out)

	out = inMemory(t, "challenge", "--roll", "90", "$stealth >> 50 [margin:20]")
	assert.Equal(t, "failure chance=70 roll=90\n", out)
}

func TestApplyWithoutSaveLeavesStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scribe.db")
	assert.Equal(t, "3 definitions, 1 characters\n", onDisk(t, db, "", "import", worldFile))

	out := onDisk(t, db, "", "apply", "$gold += 5")
	assert.Equal(t, "$gold += 5: 12 -> 17\n", out)
	assert.Equal(t, "12\n", onDisk(t, db, "", "render", "{$gold}"))
}

func TestApplySaveAndHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scribe.db")
	onDisk(t, db, "", "import", worldFile)

	onDisk(t, db, "", "apply", "--save", "$gold += 5, $title = 'Baron'")
	assert.Equal(t, "17 Baron\n", onDisk(t, db, "", "render", "{$gold} {$title}"))

	hist := strings.Split(strings.TrimSpace(onDisk(t, db, "", "history")), "\n")
	require.Len(t, hist, 2)
	assert.Contains(t, hist[0], `$title = Baron: "Knight" -> "Baron"`)
	assert.Contains(t, hist[1], "$gold += 5: 12 -> 17")
}

func TestPlayFromStdin(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scribe.db")
	onDisk(t, db, "", "import", worldFile)

	action, err := readAction("testdata/duel.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "duel", action.ID)

	out := onDisk(t, db, "", "play", "--roll", "45", "testdata/duel.yaml")
	assert.Equal(t, "success chance=70 roll=45\nYou won and hold 22 gold.\n$gold += 10: 12 -> 22\n", out)

	out = onDisk(t, db, "condition: \"$gold > 1000\"\nsuccess:\n  effect: \"$gold = 0\"\n", "play", "-")
	assert.Equal(t, "locked\n", out)
	assert.Equal(t, "22\n", onDisk(t, db, "", "render", "{$gold}"))
}

func TestWorkerOnceFiresDueEvents(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scribe.db")
	onDisk(t, db, "", "import", worldFile)

	out := onDisk(t, db, "", "apply", "--save", "$schedule[$gold += 1 : 0]")
	assert.Contains(t, out, "scheduled $gold += 1")

	onDisk(t, db, "", "worker", "--once")
	assert.Equal(t, "13\n", onDisk(t, db, "", "render", "{$gold}"))

	// Fired events are gone.
	onDisk(t, db, "", "worker", "--once")
	assert.Equal(t, "13\n", onDisk(t, db, "", "render", "{$gold}"))
}

func TestReplPipedSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scribe.db")
	onDisk(t, db, "", "import", worldFile)

	script := strings.Join([]string{
		"{$gold} coins",
		":apply $gold += 1",
		":check $gold == 13",
		":roll 45",
		":challenge $stealth >> 50 [margin:20]",
		"{$title} \\",
		"again",
		":save",
		":bogus",
		":quit",
	}, "\n") + "\n"
	out := onDisk(t, db, script, "repl")

	assert.Contains(t, out, "12 coins\n")
	assert.Contains(t, out, "$gold += 1: 12 -> 13\n")
	assert.Contains(t, out, "true\n")
	assert.Contains(t, out, "success chance=70 roll=45\n")
	assert.Contains(t, out, "... Knight \nagain\n")
	assert.Contains(t, out, "saved 1 mutations\n")
	assert.Contains(t, out, "unknown command :bogus")
	assert.Equal(t, "13\n", onDisk(t, db, "", "render", "{$gold}"))
}

func TestReplDiscardsUnsaved(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scribe.db")
	onDisk(t, db, "", "import", worldFile)

	out := onDisk(t, db, ":apply $gold = 0\n:quit\n", "repl")
	assert.Contains(t, out, "discarding unsaved changes")
	assert.Equal(t, "12\n", onDisk(t, db, "", "render", "{$gold}"))
}

func TestConfigErrors(t *testing.T) {
	_, err := runCLI(t, "", "--db", memoryDB, "--recursion-limit", "0", "render", "x")
	assert.ErrorContains(t, err, "SCRIBE_RECURSION_LIMIT")

	_, err = runCLI(t, "", "--db", memoryDB, "--log-level", "loud", "render", "x")
	assert.ErrorContains(t, err, "SCRIBE_LOG_LEVEL")

	_, err = runCLI(t, "", "--db", memoryDB, "--world", "testdata/missing.yaml", "render", "x")
	assert.ErrorContains(t, err, "missing.yaml")
}

func TestCommandErrors(t *testing.T) {
	_, err := runCLI(t, "", "--db", memoryDB, "render")
	assert.Error(t, err)

	_, err = runCLI(t, "", "--db", memoryDB, "nope")
	assert.Error(t, err)

	_, err = runCLI(t, "", "--db", memoryDB, "play", "testdata/missing.yaml")
	assert.ErrorContains(t, err, "reading action")
}

func TestJoinContinued(t *testing.T) {
	var b strings.Builder
	in, more := joinContinued(&b, `first\`)
	assert.True(t, more)
	assert.Empty(t, in)
	in, more = joinContinued(&b, "second")
	assert.False(t, more)
	assert.Equal(t, "first\nsecond", in)
	assert.Zero(t, b.Len())
}

func TestLint(t *testing.T) {
	out, err := runCLI(t, "", "lint", worldFile, "testdata/duel.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "OK   testdata/world.yaml\n")
	assert.Contains(t, out, "OK   testdata/duel.yaml\n")
	assert.Contains(t, out, "Failed: 0\n")

	out, err = runCLI(t, "", "lint", "--dir", "testdata")
	assert.ErrorContains(t, err, "1 of 3 files failed")
	assert.Contains(t, out, "FAIL testdata/broken/bad_action.yaml\n")
	assert.Contains(t, out, "condition: ")
	assert.Contains(t, out, "success.effect: ")
	assert.NotContains(t, out, "success.text")

	_, err = runCLI(t, "", "lint")
	assert.ErrorContains(t, err, "no files")
}
