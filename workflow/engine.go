package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenariochat/db"
	"scenariochat/executor"
	"scenariochat/models"
	"scenariochat/scenario"
)

const recentMessageWindow = 10

// Engine is the workflow orchestrator: it owns the turn pipeline
// classify -> handle -> execute -> respond. Every turn reaches the response
// assembler; only a failed scenario resolution returns an error instead.
type Engine struct {
	scenarios *scenario.Store
	store     *db.DB
	gen       Generator
	runner    *executor.Runner

	handlers map[string]func(context.Context, *State)

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

func NewEngine(scenarios *scenario.Store, store *db.DB, gen Generator, runner *executor.Runner) *Engine {
	e := &Engine{
		scenarios:   scenarios,
		store:       store,
		gen:         gen,
		runner:      runner,
		threadLocks: make(map[string]*sync.Mutex),
	}
	e.handlers = map[string]func(context.Context, *State){
		models.IntentChat:               e.handleChat,
		models.IntentSQLQuery:           e.handleSQLQuery,
		models.IntentVisualization:      e.handleVisualization,
		models.IntentFileEdit:           e.handleFileEdit,
		models.IntentScenarioComparison: e.handleComparison,
		models.IntentDBModification:     e.handleDBModification,
	}
	return e
}

// threadLock serializes turns per thread so request N+1 never starts before
// request N has produced its response. Locks live for the process lifetime;
// the map grows with the number of distinct thread ids seen, which tracks
// the thread store itself.
func (e *Engine) threadLock(threadID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.threadLocks[threadID]; !ok {
		e.threadLocks[threadID] = &sync.Mutex{}
	}
	return e.threadLocks[threadID]
}

// HandleTurn processes one user request end to end. The returned error is
// non-nil only for scenario resolution failures; every other failure kind is
// folded into the response.
func (e *Engine) HandleTurn(ctx context.Context, userID string, req models.ChatRequest) (*models.ChatResponse, error) {
	threadID := req.ThreadID
	if threadID == "" {
		threadID = models.DefaultThreadID
	}

	lock := e.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	sc, err := e.scenarios.Resolve(req.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("%w: scenario %q: %v", ErrScenarioResolution, req.ScenarioID, err)
	}

	if err := e.ensureThread(userID, threadID); err != nil {
		log.Printf("[WORKFLOW] failed to ensure thread %s: %v", threadID, err)
	}
	history, err := e.store.GetMessages(threadID)
	if err != nil {
		log.Printf("[WORKFLOW] failed to load history for thread %s: %v", threadID, err)
	}
	if len(history) > recentMessageWindow {
		history = history[len(history)-recentMessageWindow:]
	}

	st := &State{
		UserID:   userID,
		ThreadID: threadID,
		Request:  req.Message,
		QueryID:  uuid.New().String(),
		Scenario: sc,
		Recent:   history,
	}

	known, err := e.scenarios.List()
	if err != nil {
		log.Printf("[WORKFLOW] failed to list scenarios: %v", err)
	}
	st.Intent, st.PrecheckReason = classify(ctx, e.gen, st.Request, st.Recent, sc, known)
	log.Printf("[WORKFLOW] thread=%s scenario=%s intent=%s (%s)", threadID, sc.ID, st.Intent, st.PrecheckReason)

	if handler, ok := e.handlers[st.Intent]; ok {
		handler(ctx, st)
	} else {
		st.Intent = models.IntentChat
		e.handleChat(ctx, st)
	}

	e.execute(ctx, st)
	e.recordFileGroup(st)

	resp := assemble(st)
	e.persistTurn(st, resp)
	return resp, nil
}

// execute runs the handler's artifact, if any. The scenario binding is
// re-resolved here so the run always sees the current database path, and the
// per-scenario write lock serializes script runs against DB modifications.
func (e *Engine) execute(ctx context.Context, st *State) {
	if st.ValidationErr != nil || st.HandlerErr != nil {
		return
	}

	switch {
	case st.Modification != nil:
		sc, err := e.scenarios.Resolve(st.Scenario.ID)
		if err != nil {
			st.HandlerErr = fmt.Errorf("scenario disappeared before apply: %w", err)
			return
		}
		st.Scenario = sc

		writeLock := e.scenarios.WriteLock(sc.ID)
		writeLock.Lock()
		defer writeLock.Unlock()

		result, err := executor.ApplyModification(ctx, sc, st.Modification)
		if err != nil {
			st.ModErr = err
			return
		}
		st.ModResult = result

	case st.Script != "":
		sc, err := e.scenarios.Resolve(st.Scenario.ID)
		if err != nil {
			st.HandlerErr = fmt.Errorf("scenario disappeared before execution: %w", err)
			return
		}
		st.Scenario = sc

		writeLock := e.scenarios.WriteLock(sc.ID)
		writeLock.Lock()
		defer writeLock.Unlock()

		result, err := e.runner.Execute(ctx, st.Script, sc, st.ExtraEnv)
		if err != nil {
			st.HandlerErr = fmt.Errorf("failed to start script execution: %w", err)
			return
		}
		st.ExecResult = result
	}
}

// recordFileGroup ties generated files back to the query that produced them.
// Turns without files never create a group.
func (e *Engine) recordFileGroup(st *State) {
	if st.ExecResult == nil || len(st.ExecResult.GeneratedFiles) == 0 {
		return
	}
	names := make([]string, len(st.ExecResult.GeneratedFiles))
	for i, f := range st.ExecResult.GeneratedFiles {
		names[i] = f.Filename
	}
	group := &models.QueryFileGroup{
		ID:         st.QueryID,
		Query:      st.Request,
		ScenarioID: st.Scenario.ID,
		Timestamp:  time.Now().Format(time.RFC3339),
		Files:      names,
	}
	if err := e.store.StoreQueryFileGroup(group); err != nil {
		log.Printf("[WORKFLOW] failed to store query file group %s: %v", group.ID, err)
	}
}

func (e *Engine) ensureThread(userID, threadID string) error {
	if threadID == models.DefaultThreadID {
		return e.store.EnsureDefaultThread(userID)
	}
	existing, err := e.store.GetThread(userID, threadID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	now := time.Now().Format(time.RFC3339)
	return e.store.StoreThread(&models.Thread{
		ID:        threadID,
		UserID:    userID,
		Title:     "New chat",
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// persistTurn appends the user and assistant messages and touches the thread.
func (e *Engine) persistTurn(st *State, resp *models.ChatResponse) {
	if err := e.store.AppendMessage(st.ThreadID, models.Message{Role: "user", Content: st.Request}); err != nil {
		log.Printf("[WORKFLOW] failed to store user message: %v", err)
	}
	if err := e.store.AppendMessage(st.ThreadID, models.Message{Role: "assistant", Content: resp.Response}); err != nil {
		log.Printf("[WORKFLOW] failed to store assistant message: %v", err)
	}
	if thread, err := e.store.GetThread(st.UserID, st.ThreadID); err == nil && thread != nil {
		thread.UpdatedAt = time.Now().Format(time.RFC3339)
		if err := e.store.StoreThread(thread); err != nil {
			log.Printf("[WORKFLOW] failed to update thread %s: %v", st.ThreadID, err)
		}
	}
}
