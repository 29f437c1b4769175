package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scenariochat/ai"
	"scenariochat/models"
	"scenariochat/scenario"
	"scenariochat/validation"
)

const editPromptContentLimit = 16 * 1024

// handleChat answers from conversation and schema context only. It never
// touches the database or filesystem and must not claim to have run anything.
func (e *Engine) handleChat(ctx context.Context, st *State) {
	if st.PrecheckReason == precheckInvalidPrompt {
		st.Answer = "I couldn't make sense of that message. Could you rephrase what you'd like to know about the scenario data?"
		return
	}

	prompt := ai.BuildChatPrompt(st.Request, st.Recent, st.Scenario.Schema, st.Scenario.Name)
	reply, err := e.gen.Generate(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		st.HandlerErr = fmt.Errorf("chat generation failed: %w", err)
		return
	}
	st.Answer = ai.StripFences(reply)
}

func (e *Engine) handleSQLQuery(ctx context.Context, st *State) {
	prompt := ai.BuildSQLScriptPrompt(st.Request, st.Scenario.Schema, st.Scenario.Name)
	e.generateScript(ctx, st, prompt, "query script")
}

func (e *Engine) handleVisualization(ctx context.Context, st *State) {
	prompt := ai.BuildVizScriptPrompt(st.Request, st.Scenario.Schema, st.Scenario.Name)
	e.generateScript(ctx, st, prompt, "chart script")
}

func (e *Engine) generateScript(ctx context.Context, st *State, prompt, what string) {
	reply, err := e.gen.Generate(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		st.HandlerErr = fmt.Errorf("failed to generate %s: %w", what, err)
		return
	}
	script := ai.StripFences(reply, "python", "py")
	if strings.TrimSpace(script) == "" {
		st.HandlerErr = fmt.Errorf("generated %s is empty", what)
		return
	}
	st.Script = script
}

// handleFileEdit rewrites an existing generated file. The file must already
// exist inside the scenario's working directory; its pre-edit content is
// recorded as a provenance entry before anything runs.
func (e *Engine) handleFileEdit(ctx context.Context, st *State) {
	target, err := findEditTarget(st.Request, st.Scenario.FilesDir)
	if err != nil {
		st.ValidationErr = err
		return
	}

	original, err := os.ReadFile(filepath.Join(st.Scenario.FilesDir, target))
	if err != nil {
		st.ValidationErr = fmt.Errorf("could not read %s: %w", target, err)
		return
	}

	entry := models.ProvenanceEntry{
		QueryID:         st.QueryID,
		FilePath:        filepath.Join(st.Scenario.FilesDir, target),
		OriginalContent: string(original),
		Timestamp:       time.Now().Format(time.RFC3339),
	}
	if err := e.store.StoreProvenance(entry); err != nil {
		st.HandlerErr = fmt.Errorf("failed to record edit provenance: %w", err)
		return
	}

	content := string(original)
	if len(content) > editPromptContentLimit {
		content = content[:editPromptContentLimit] + "\n... (truncated)"
	}
	prompt := ai.BuildFileEditPrompt(st.Request, target, content)
	e.generateScript(ctx, st, prompt, "edit script")
}

// findEditTarget matches a filename mentioned in the request against the
// files that actually exist in the scenario working directory. Matching only
// directory entries keeps edits inside the scenario's allowed directory.
func findEditTarget(request, filesDir string) (string, error) {
	entries, err := os.ReadDir(filesDir)
	if err != nil {
		return "", fmt.Errorf("could not list scenario files: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	lowerRequest := strings.ToLower(request)
	for _, name := range names {
		if strings.Contains(lowerRequest, strings.ToLower(name)) {
			return name, nil
		}
	}
	// second pass: match on the base name without extension
	for _, name := range names {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if len(base) >= 3 && strings.Contains(lowerRequest, strings.ToLower(base)) {
			return name, nil
		}
	}

	if len(names) == 0 {
		return "", fmt.Errorf("this scenario has no generated files to edit yet")
	}
	return "", fmt.Errorf("no existing file matches that request; available files: %s", strings.Join(names, ", "))
}

// handleComparison resolves the scenarios named in the request and builds a
// read-only comparison artifact. Fewer than two resolvable names redirects
// the turn back to chat with an explanation instead of failing.
func (e *Engine) handleComparison(ctx context.Context, st *State) {
	known, err := e.scenarios.List()
	if err != nil {
		st.HandlerErr = fmt.Errorf("failed to list scenarios: %w", err)
		return
	}

	mentioned := ExtractScenarios(st.Request, known)
	var contexts []*scenario.Context
	for _, info := range mentioned {
		sc, err := e.scenarios.Resolve(info.ID)
		if err != nil {
			continue // unresolvable names are dropped silently
		}
		contexts = append(contexts, sc)
	}

	if len(contexts) < 2 {
		st.Intent = models.IntentChat
		st.Answer = "I need at least two known scenarios to run a comparison. " +
			"Please name the scenarios you want compared, for example \"compare Base and HighDemand\"."
		return
	}

	dbs := make(map[string]string, len(contexts))
	names := make([]string, 0, len(contexts))
	for _, sc := range contexts {
		dbs[sc.Name] = sc.DSN
		names = append(names, sc.Name)
	}
	encoded, err := json.Marshal(dbs)
	if err != nil {
		st.HandlerErr = err
		return
	}
	st.ExtraEnv = map[string]string{"COMPARE_DBS": string(encoded)}

	prompt := ai.BuildComparisonPrompt(st.Request, names, contexts[0].Schema)
	e.generateScript(ctx, st, prompt, "comparison script")
}

// modificationWire is the JSON shape the model returns for db_modification.
type modificationWire struct {
	Table        string      `json:"table"`
	Column       string      `json:"column"`
	Selector     string      `json:"selector"`
	NewValue     interface{} `json:"new_value"`
	PercentDelta *float64    `json:"percent_delta"`
	Error        string      `json:"error"`
}

// handleDBModification resolves the requested parameter change into a
// concrete, schema-validated ModificationRequest. Validation failures are
// surfaced to the user; they never abort the turn.
func (e *Engine) handleDBModification(ctx context.Context, st *State) {
	prompt := ai.BuildModificationPrompt(st.Request, st.Scenario.Schema)
	reply, err := e.gen.Generate(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		st.HandlerErr = fmt.Errorf("failed to resolve the requested change: %w", err)
		return
	}

	var wire modificationWire
	if err := json.Unmarshal([]byte(ai.StripFences(reply, "json")), &wire); err != nil {
		st.ValidationErr = fmt.Errorf("the requested change could not be resolved against the schema")
		return
	}
	if wire.Error != "" {
		st.ValidationErr = fmt.Errorf("the requested parameter was not found: %s", wire.Error)
		return
	}

	req := &models.ModificationRequest{
		Table:        strings.TrimSpace(wire.Table),
		Column:       strings.TrimSpace(wire.Column),
		Selector:     strings.TrimSpace(wire.Selector),
		PercentDelta: wire.PercentDelta,
	}
	if wire.NewValue != nil {
		v := formatWireValue(wire.NewValue)
		req.NewValue = &v
	}

	if err := validation.ValidateModification(req, st.Scenario.Schema); err != nil {
		st.ValidationErr = err
		return
	}
	st.Modification = req
}

func formatWireValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
