package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scenariochat/models"
	"scenariochat/scenario"
)

const outputLimit = 8 * 1024

// Runner executes generated script artifacts inside a scenario's working
// directory.
type Runner struct {
	pythonBin string
	timeout   time.Duration
}

// Result captures everything a script run produced. Script failures live in
// ExitCode/Stderr/TimedOut, never in a Go error: the workflow still responds.
type Result struct {
	Stdout         string
	Stderr         string
	ExitCode       int
	TimedOut       bool
	Duration       time.Duration
	GeneratedFiles []models.GeneratedFile
}

func NewRunner(pythonBin string, timeout time.Duration) *Runner {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{pythonBin: pythonBin, timeout: timeout}
}

// Execute runs a script with cwd and database binding taken from the scenario
// context resolved for this turn. Files that appear in the working directory
// during the run are captured and classified, including after a timeout.
func (r *Runner) Execute(ctx context.Context, script string, sc *scenario.Context, extraEnv map[string]string) (*Result, error) {
	before, err := listFiles(sc.FilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenario directory: %w", err)
	}

	tmp, err := os.CreateTemp("", "scenario-script-*.py")
	if err != nil {
		return nil, fmt.Errorf("failed to create script file: %w", err)
	}
	scriptPath := tmp.Name()
	defer os.Remove(scriptPath)
	if _, err := tmp.WriteString(script); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write script file: %w", err)
	}
	tmp.Close()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.pythonBin, scriptPath)
	cmd.Dir = sc.FilesDir

	env := os.Environ()
	env = append(env,
		"SCENARIO_DB="+sc.DSN,
		"SCENARIO_ID="+sc.ID,
		"SCENARIO_NAME="+sc.Name,
		"OUTPUT_DIR="+sc.FilesDir,
	)
	for k, v := range extraEnv {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   truncate(stdout.String()),
		Stderr:   truncate(stderr.String()),
		Duration: duration,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		if result.Stderr == "" {
			result.Stderr = fmt.Sprintf("execution exceeded the %s time limit and was aborted", r.timeout)
		}
	} else if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = runErr.Error()
			}
		}
	}

	// Best effort even on failure or timeout: partially written files are
	// still reported back.
	after, err := listFiles(sc.FilesDir)
	if err != nil {
		return result, nil
	}
	result.GeneratedFiles = classifyNewFiles(sc.FilesDir, before, after)

	return result, nil
}

func listFiles(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			files[entry.Name()] = true
		}
	}
	return files, nil
}

func classifyNewFiles(dir string, before, after map[string]bool) []models.GeneratedFile {
	var names []string
	for name := range after {
		if !before[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	files := make([]models.GeneratedFile, 0, len(names))
	for _, name := range names {
		files = append(files, models.GeneratedFile{
			Filename: name,
			Path:     filepath.Join(dir, name),
			Type:     ClassifyFile(name),
		})
	}
	return files
}

// ClassifyFile maps a generated file's extension to its declared type.
func ClassifyFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return models.FileTypeChart
	case ".json", ".csv":
		return models.FileTypeTable
	case ".py", ".sql":
		return models.FileTypeScript
	default:
		return models.FileTypeText
	}
}

func truncate(s string) string {
	if len(s) <= outputLimit {
		return s
	}
	return s[:outputLimit] + "\n... (output truncated)"
}
