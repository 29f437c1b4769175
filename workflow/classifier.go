package workflow

import (
	"context"
	"log"
	"strings"

	"scenariochat/ai"
	"scenariochat/models"
	"scenariochat/scenario"
	"scenariochat/validation"
)

const (
	precheckInvalidPrompt  = "invalid_prompt"
	precheckMultiScenario  = "multiple_scenarios_named"
	precheckModel          = "model"
	precheckModelFailed    = "model_classifier_failed"
	precheckModelAmbiguous = "model_reply_unrecognized"
)

// classify maps a user request to exactly one intent. Deterministic checks
// run first: gibberish short-circuits to chat, and a request naming two or
// more known scenarios is a comparison no matter what else it looks like.
// A failing or ambiguous model reply falls back to chat, never to an error.
func classify(ctx context.Context, gen Generator, request string, recent []models.Message, sc *scenario.Context, known []scenario.Info) (string, string) {
	if !validation.IsValidPrompt(request) {
		return models.IntentChat, precheckInvalidPrompt
	}

	if mentioned := ExtractScenarios(request, known); len(mentioned) >= 2 {
		return models.IntentScenarioComparison, precheckMultiScenario
	}

	prompt := ai.BuildClassifyPrompt(request, recent, sc.Schema, sc.Name)
	reply, err := gen.Generate(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		log.Printf("[CLASSIFIER] model call failed, falling back to chat: %v", err)
		return models.IntentChat, precheckModelFailed
	}

	intent, ok := normalizeIntent(reply)
	if !ok {
		log.Printf("[CLASSIFIER] unrecognized reply %q, falling back to chat", reply)
		return models.IntentChat, precheckModelAmbiguous
	}
	return intent, precheckModel
}

func normalizeIntent(raw string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(ai.StripFences(raw)))
	v = strings.Trim(v, `"'.`)
	switch v {
	case models.IntentChat,
		models.IntentSQLQuery,
		models.IntentVisualization,
		models.IntentFileEdit,
		models.IntentScenarioComparison,
		models.IntentDBModification:
		return v, true
	}
	// tolerate close variants some models produce
	switch {
	case strings.Contains(v, "sql"):
		return models.IntentSQLQuery, true
	case strings.Contains(v, "visual") || strings.Contains(v, "chart"):
		return models.IntentVisualization, true
	case strings.Contains(v, "comparison") || strings.Contains(v, "compare"):
		return models.IntentScenarioComparison, true
	case strings.Contains(v, "modif"):
		return models.IntentDBModification, true
	case strings.Contains(v, "edit"):
		return models.IntentFileEdit, true
	case strings.Contains(v, "chat"):
		return models.IntentChat, true
	}
	return "", false
}
