package workflow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"scenariochat/executor"
	"scenariochat/models"
)

func TestAssembleValidationError(t *testing.T) {
	st := &State{
		Intent:        models.IntentDBModification,
		ValidationErr: fmt.Errorf(`column "no_such" not found in table "parameters"`),
	}
	resp := assemble(st)
	assert.Equal(t, models.IntentDBModification, resp.Intent)
	assert.Contains(t, resp.Response, "I couldn't complete that request")
	assert.Contains(t, resp.Response, `column "no_such" not found`)
	assert.Empty(t, resp.GeneratedFiles)
	assert.Empty(t, resp.ExecutionError)
}

func TestAssembleModificationSummaryLeadsVerbatim(t *testing.T) {
	st := &State{
		Intent: models.IntentDBModification,
		ModResult: &models.ModificationResult{
			Table:       "parameters",
			Column:      "shipping_cost",
			UpdatedRows: 1,
			OldValue:    "100",
			NewValue:    "110",
			Summary:     "Updated parameters.shipping_cost from 100 to 110",
		},
	}
	resp := assemble(st)
	assert.True(t, strings.HasPrefix(resp.Response, "Updated parameters.shipping_cost from 100 to 110"))
	assert.Contains(t, resp.Response, "Re-running the scenario")
	assert.NotContains(t, resp.Response, "(1 rows)")
}

func TestAssembleModificationMultiRowNote(t *testing.T) {
	st := &State{
		Intent: models.IntentDBModification,
		ModResult: &models.ModificationResult{
			UpdatedRows: 3,
			Summary:     "Updated orders.priority from 1 to 2",
		},
	}
	resp := assemble(st)
	assert.Contains(t, resp.Response, "(3 rows)")
}

func TestAssembleExecutionFailureKeepsPartialFiles(t *testing.T) {
	st := &State{
		Intent: models.IntentVisualization,
		ExecResult: &executor.Result{
			Stdout:   "building chart",
			Stderr:   "Traceback: KeyError 'revenue'",
			ExitCode: 1,
			GeneratedFiles: []models.GeneratedFile{
				{Filename: "partial.html", Type: models.FileTypeChart},
			},
		},
	}
	resp := assemble(st)
	assert.Contains(t, resp.Response, "The chart could not be generated")
	assert.Equal(t, "Traceback: KeyError 'revenue'", resp.ExecutionError)
	assert.Len(t, resp.GeneratedFiles, 1)
	assert.Equal(t, "building chart", resp.ExecutionOutput)
}

func TestAssembleTimeoutWording(t *testing.T) {
	st := &State{
		Intent: models.IntentSQLQuery,
		ExecResult: &executor.Result{
			TimedOut: true,
			ExitCode: -1,
			Stderr:   "execution exceeded the 1m0s time limit and was aborted",
		},
	}
	resp := assemble(st)
	assert.Contains(t, resp.Response, "The query could not be completed")
	assert.Contains(t, resp.Response, "exceeding the time limit")
}

func TestAssembleFailureWithoutStderrNamesExitStatus(t *testing.T) {
	st := &State{
		Intent:     models.IntentScenarioComparison,
		ExecResult: &executor.Result{ExitCode: 2},
	}
	resp := assemble(st)
	assert.Equal(t, "script exited with status 2", resp.ExecutionError)
	assert.Contains(t, resp.Response, "The scenario comparison failed")
}

func TestAssembleSuccessMentionsFiles(t *testing.T) {
	st := &State{
		Intent: models.IntentSQLQuery,
		ExecResult: &executor.Result{
			Stdout: "5 rows selected",
			GeneratedFiles: []models.GeneratedFile{
				{Filename: "result.json", Type: models.FileTypeTable},
			},
		},
	}
	resp := assemble(st)
	assert.Contains(t, resp.Response, "Here are the results of your query.")
	assert.Contains(t, resp.Response, "result.json")
	assert.Contains(t, resp.Response, "5 rows selected")
	assert.Empty(t, resp.ExecutionError)
}

func TestAssembleNeverEmpty(t *testing.T) {
	resp := assemble(&State{Intent: models.IntentChat})
	assert.NotEmpty(t, resp.Response)
}

func TestAssembleAnswerPassthrough(t *testing.T) {
	resp := assemble(&State{Intent: models.IntentChat, Answer: "The scenario has two tables."})
	assert.Equal(t, "The scenario has two tables.", resp.Response)
}
