package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenariochat/models"
	"scenariochat/scenario"
)

// shellRunner returns a runner that executes scripts with /bin/sh, so tests
// do not depend on a Python installation.
func shellRunner(timeout time.Duration) *Runner {
	return NewRunner("/bin/sh", timeout)
}

func testContext(t *testing.T) *scenario.Context {
	t.Helper()
	dir := t.TempDir()
	return &scenario.Context{
		Info:     scenario.Info{ID: "test", Name: "Test"},
		Backend:  scenario.BackendSQLite,
		DBPath:   filepath.Join(dir, "scenario.db"),
		DSN:      filepath.Join(dir, "scenario.db"),
		FilesDir: dir,
	}
}

func TestExecuteCapturesOutputAndFiles(t *testing.T) {
	sc := testContext(t)
	script := "echo hello\nprintf '{}' > result.json\necho '<b>x</b>' > chart.html\n"

	result, err := shellRunner(5*time.Second).Execute(context.Background(), script, sc, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.TimedOut)
	assert.Contains(t, result.Stdout, "hello")
	require.Len(t, result.GeneratedFiles, 2)
	// sorted by filename
	assert.Equal(t, "chart.html", result.GeneratedFiles[0].Filename)
	assert.Equal(t, models.FileTypeChart, result.GeneratedFiles[0].Type)
	assert.Equal(t, "result.json", result.GeneratedFiles[1].Filename)
	assert.Equal(t, models.FileTypeTable, result.GeneratedFiles[1].Type)
}

func TestExecuteEnvironmentBindings(t *testing.T) {
	sc := testContext(t)
	script := "echo \"$SCENARIO_DB|$SCENARIO_ID|$SCENARIO_NAME|$OUTPUT_DIR|$EXTRA\"\n"

	result, err := shellRunner(5*time.Second).Execute(context.Background(), script, sc, map[string]string{"EXTRA": "bonus"})
	require.NoError(t, err)

	parts := strings.Split(strings.TrimSpace(result.Stdout), "|")
	require.Len(t, parts, 5)
	assert.Equal(t, sc.DSN, parts[0])
	assert.Equal(t, "test", parts[1])
	assert.Equal(t, "Test", parts[2])
	assert.Equal(t, sc.FilesDir, parts[3])
	assert.Equal(t, "bonus", parts[4])
}

func TestExecuteNonzeroExit(t *testing.T) {
	sc := testContext(t)
	script := "echo oops >&2\nexit 3\n"

	result, err := shellRunner(5*time.Second).Execute(context.Background(), script, sc, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Stderr, "oops")
	assert.False(t, result.TimedOut)
}

func TestExecuteTimeoutStillCapturesFiles(t *testing.T) {
	sc := testContext(t)
	script := "echo early > partial.txt\nsleep 30\n"

	result, err := shellRunner(300*time.Millisecond).Execute(context.Background(), script, sc, nil)
	require.NoError(t, err)

	assert.True(t, result.TimedOut)
	assert.Equal(t, -1, result.ExitCode)
	assert.Contains(t, result.Stderr, "time limit")
	require.Len(t, result.GeneratedFiles, 1)
	assert.Equal(t, "partial.txt", result.GeneratedFiles[0].Filename)
	assert.Equal(t, models.FileTypeText, result.GeneratedFiles[0].Type)
}

func TestExecuteIgnoresPreexistingFiles(t *testing.T) {
	sc := testContext(t)
	require.NoError(t, os.WriteFile(filepath.Join(sc.FilesDir, "old.csv"), []byte("a,b\n"), 0644))
	script := "echo new > new.csv\n"

	result, err := shellRunner(5*time.Second).Execute(context.Background(), script, sc, nil)
	require.NoError(t, err)

	require.Len(t, result.GeneratedFiles, 1)
	assert.Equal(t, "new.csv", result.GeneratedFiles[0].Filename)
}

func TestExecuteTruncatesLongOutput(t *testing.T) {
	sc := testContext(t)
	script := "i=0\nwhile [ $i -lt 2000 ]; do echo 'aaaaaaaaaaaaaaaaaaaa'; i=$((i+1)); done\n"

	result, err := shellRunner(10*time.Second).Execute(context.Background(), script, sc, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.Stdout), outputLimit+64)
	assert.Contains(t, result.Stdout, "output truncated")
}

func TestClassifyFile(t *testing.T) {
	cases := map[string]string{
		"chart.html":     models.FileTypeChart,
		"page.HTM":       models.FileTypeChart,
		"result.json":    models.FileTypeTable,
		"export.csv":     models.FileTypeTable,
		"script.py":      models.FileTypeScript,
		"query.sql":      models.FileTypeScript,
		"notes.txt":      models.FileTypeText,
		"no_extension":   models.FileTypeText,
		"archive.tar.gz": models.FileTypeText,
	}
	for name, want := range cases {
		assert.Equal(t, want, ClassifyFile(name), "file %s", name)
	}
}
