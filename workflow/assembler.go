package workflow

import (
	"fmt"
	"strings"

	"scenariochat/models"
)

// assemble merges handler and executor output into one uniform reply. The
// response text is never empty, and partial generated files are attached even
// when execution failed.
func assemble(st *State) *models.ChatResponse {
	resp := &models.ChatResponse{
		Intent:         st.Intent,
		GeneratedFiles: []models.GeneratedFile{},
	}

	switch {
	case st.ValidationErr != nil:
		resp.Response = fmt.Sprintf("I couldn't complete that request: %v", st.ValidationErr)

	case st.HandlerErr != nil:
		resp.Response = fmt.Sprintf("Something went wrong while preparing that request: %v. Please try again.", st.HandlerErr)

	case st.ModErr != nil:
		resp.Response = fmt.Sprintf("The change could not be applied: %v", st.ModErr)

	case st.ModResult != nil:
		// Downstream audit tracking parses the "Updated <table>.<column>
		// from <old> to <new>" pattern; keep it first and verbatim.
		resp.Response = st.ModResult.Summary
		if st.ModResult.UpdatedRows > 1 {
			resp.Response += fmt.Sprintf(" (%d rows)", st.ModResult.UpdatedRows)
		}
		resp.Response += " Re-running the scenario may be needed for dependent results to reflect this change."

	case st.ExecResult != nil:
		resp.GeneratedFiles = append(resp.GeneratedFiles, st.ExecResult.GeneratedFiles...)
		resp.ExecutionOutput = st.ExecResult.Stdout

		failed := st.ExecResult.TimedOut || st.ExecResult.ExitCode != 0
		if failed {
			resp.ExecutionError = executionErrorText(st)
			resp.Response = failureText(st)
		} else {
			resp.Response = successText(st, resp)
		}

	case st.Answer != "":
		resp.Response = st.Answer

	default:
		resp.Response = "I'm not sure how to help with that, could you rephrase?"
	}

	return resp
}

func executionErrorText(st *State) string {
	if strings.TrimSpace(st.ExecResult.Stderr) != "" {
		return st.ExecResult.Stderr
	}
	return fmt.Sprintf("script exited with status %d", st.ExecResult.ExitCode)
}

func failureText(st *State) string {
	var what string
	switch st.Intent {
	case models.IntentVisualization:
		what = "The chart could not be generated"
	case models.IntentSQLQuery:
		what = "The query could not be completed"
	case models.IntentScenarioComparison:
		what = "The scenario comparison failed"
	case models.IntentFileEdit:
		what = "The file edit failed"
	default:
		what = "Execution failed"
	}
	if st.ExecResult.TimedOut {
		return fmt.Sprintf("%s: execution was aborted after exceeding the time limit.", what)
	}
	return fmt.Sprintf("%s: %s", what, executionErrorText(st))
}

func successText(st *State, resp *models.ChatResponse) string {
	var text string
	switch st.Intent {
	case models.IntentSQLQuery:
		text = "Here are the results of your query."
	case models.IntentVisualization:
		text = "Here is the chart you asked for."
	case models.IntentScenarioComparison:
		text = "Here is the scenario comparison."
	case models.IntentFileEdit:
		text = "The file has been updated."
	default:
		text = "Done."
	}
	if n := len(resp.GeneratedFiles); n == 1 {
		text += fmt.Sprintf(" 1 file was generated (%s).", resp.GeneratedFiles[0].Filename)
	} else if n > 1 {
		text += fmt.Sprintf(" %d files were generated.", n)
	}
	if out := strings.TrimSpace(st.ExecResult.Stdout); out != "" {
		text += "\n\n" + out
	}
	return text
}
