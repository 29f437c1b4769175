package models

// Intent values produced by the classifier. Every user turn resolves to
// exactly one of these.
const (
	IntentChat               = "chat"
	IntentSQLQuery           = "sql_query"
	IntentVisualization      = "visualization"
	IntentFileEdit           = "file_edit"
	IntentScenarioComparison = "scenario_comparison"
	IntentDBModification     = "db_modification"
)

// Generated file types, classified by extension after a script run.
const (
	FileTypeChart  = "html-chart"
	FileTypeTable  = "table"
	FileTypeScript = "script"
	FileTypeText   = "text"
)

const DefaultThreadID = "default"

type Message struct {
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type Thread struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ChatRequest struct {
	ThreadID   string `json:"thread_id,omitempty"`
	ScenarioID string `json:"scenario_id" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Response        string          `json:"response"`
	Intent          string          `json:"intent,omitempty"`
	GeneratedFiles  []GeneratedFile `json:"generated_files"`
	ExecutionOutput string          `json:"execution_output,omitempty"`
	ExecutionError  string          `json:"execution_error,omitempty"`
}

type GeneratedFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Type     string `json:"type"`
}

// ModificationRequest is a validated parameter change produced by the
// db_modification handler and applied exactly once by the modification
// executor. Either NewValue or PercentDelta is set, never both.
type ModificationRequest struct {
	Table        string   `json:"table"`
	Column       string   `json:"column"`
	Selector     string   `json:"selector,omitempty"` // SQL WHERE fragment, empty means all rows
	NewValue     *string  `json:"new_value,omitempty"`
	PercentDelta *float64 `json:"percent_delta,omitempty"`
}

type ModificationResult struct {
	Table       string `json:"table"`
	Column      string `json:"column"`
	UpdatedRows int64  `json:"updated_rows"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
	Summary     string `json:"summary"`
}

// QueryFileGroup ties the files produced by one executing turn back to the
// query that produced them. A group with zero files is never stored.
type QueryFileGroup struct {
	ID         string   `json:"id"`
	Query      string   `json:"query"`
	ScenarioID string   `json:"scenario_id"`
	Timestamp  string   `json:"timestamp"`
	Files      []string `json:"files"`
}

// ProvenanceEntry records a file's content before a file_edit turn rewrites
// it, so edits stay auditable.
type ProvenanceEntry struct {
	QueryID         string `json:"query_id"`
	FilePath        string `json:"file_path"`
	OriginalContent string `json:"original_content"`
	Timestamp       string `json:"timestamp"`
}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is a snapshot of a scenario database: table name to columns.
type Schema map[string][]Column
