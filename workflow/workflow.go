package workflow

import (
	"context"
	"fmt"

	"scenariochat/ai"
	"scenariochat/executor"
	"scenariochat/models"
	"scenariochat/scenario"
)

// Generator is the opaque text-generation capability. The production
// implementation is ai.Client; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, messages []ai.Message) (string, error)
}

// ErrScenarioResolution is the one error that aborts a turn before the
// response assembler runs. Everything else flows into the state and still
// produces a reply.
var ErrScenarioResolution = fmt.Errorf("scenario resolution failed")

// State carries one in-flight turn through the pipeline. Created at the start
// of HandleTurn and discarded after the assembler consumes it.
type State struct {
	UserID   string
	ThreadID string
	Request  string
	QueryID  string

	Scenario *scenario.Context
	Recent   []models.Message

	Intent         string
	PrecheckReason string

	// handler output: exactly one of these is set
	Answer       string
	Script       string
	ExtraEnv     map[string]string
	Modification *models.ModificationRequest

	ValidationErr error
	HandlerErr    error

	// execution output
	ExecResult *executor.Result
	ModResult  *models.ModificationResult
	ModErr     error
}
