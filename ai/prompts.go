package ai

import (
	"fmt"
	"sort"
	"strings"

	"scenariochat/models"
)

// SchemaSummary renders a schema snapshot as "table(col type, ...)" lines,
// sorted for stable prompts (stable prompts cache well).
func SchemaSummary(schema models.Schema) string {
	tables := make([]string, 0, len(schema))
	for table := range schema {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var b strings.Builder
	for _, table := range tables {
		parts := make([]string, 0, len(schema[table]))
		for _, col := range schema[table] {
			parts = append(parts, fmt.Sprintf("%s %s", col.Name, col.Type))
		}
		b.WriteString(fmt.Sprintf("%s(%s)\n", table, strings.Join(parts, ", ")))
	}
	return b.String()
}

// BuildClassifyPrompt constructs the intent classification prompt. The model
// must answer with exactly one intent token.
func BuildClassifyPrompt(userRequest string, recent []models.Message, schema models.Schema, scenarioName string) string {
	var b strings.Builder
	b.WriteString("You are an intent classifier for a data analysis assistant.\n")
	b.WriteString("Classify the user's request into exactly ONE of these intents:\n\n")
	b.WriteString("- chat: general conversation, questions answerable without running anything\n")
	b.WriteString("- sql_query: the user wants data retrieved from the scenario database as a table\n")
	b.WriteString("- visualization: the user wants a chart or plot from the scenario's data\n")
	b.WriteString("- file_edit: the user wants an existing generated file changed\n")
	b.WriteString("- scenario_comparison: the user wants two or more scenarios compared\n")
	b.WriteString("- db_modification: the user wants a parameter or value changed in the database\n\n")
	b.WriteString(fmt.Sprintf("Current scenario: %s\n", scenarioName))
	b.WriteString("Scenario tables:\n")
	b.WriteString(SchemaSummary(schema))
	b.WriteString("\n")

	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, m := range recent {
			b.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
		}
		b.WriteString("\n")
	}

	b.WriteString("--- User Request ---\n")
	b.WriteString(userRequest)
	b.WriteString("\n\nReply with the single intent token only, no explanation.")
	return b.String()
}

// BuildChatPrompt constructs a conversational prompt. The assistant may
// describe the data but must not claim to have executed anything.
func BuildChatPrompt(userRequest string, recent []models.Message, schema models.Schema, scenarioName string) string {
	var b strings.Builder
	b.WriteString("You are a helpful data analysis assistant.\n")
	b.WriteString(fmt.Sprintf("The user is working with scenario %q, whose tables are:\n", scenarioName))
	b.WriteString(SchemaSummary(schema))
	b.WriteString("\nAnswer conversationally. You have NOT executed any query or code in this ")
	b.WriteString("turn, so never claim results you do not have. If the user seems to want a ")
	b.WriteString("query, chart or change, suggest how to ask for it.\n\n")

	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, m := range recent {
			b.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
		}
		b.WriteString("\n")
	}

	b.WriteString("--- User Message ---\n")
	b.WriteString(userRequest)
	return b.String()
}

func writeScriptRules(b *strings.Builder) {
	b.WriteString("Script rules:\n")
	b.WriteString("- Python 3, standard library only (sqlite3, json, csv, os, html)\n")
	b.WriteString("- open the scenario database READ path from the SCENARIO_DB environment variable\n")
	b.WriteString("- write output files into the current working directory\n")
	b.WriteString("- print a short human-readable summary to stdout\n")
	b.WriteString("- return only the script, no explanation, no markdown fences\n")
}

// BuildSQLScriptPrompt asks for a script that runs one SQL query against the
// scenario database and saves the result as a table file.
func BuildSQLScriptPrompt(userRequest string, schema models.Schema, scenarioName string) string {
	var b strings.Builder
	b.WriteString("You are a SQL and Python expert. Generate a Python script that answers the ")
	b.WriteString("user's question by querying a SQLite scenario database and saving the result ")
	b.WriteString("as a table file.\n\n")
	b.WriteString(fmt.Sprintf("Scenario: %s\nTables:\n", scenarioName))
	b.WriteString(SchemaSummary(schema))
	b.WriteString("\n")
	writeScriptRules(&b)
	b.WriteString("- run exactly one SELECT query, no writes\n")
	b.WriteString("- save the result as result.json: {\"columns\": [...], \"rows\": [[...], ...]}\n\n")
	b.WriteString("--- User Request ---\n")
	b.WriteString(userRequest)
	return b.String()
}

// BuildVizScriptPrompt asks for a script producing a self-contained HTML chart.
func BuildVizScriptPrompt(userRequest string, schema models.Schema, scenarioName string) string {
	var b strings.Builder
	b.WriteString("You are a data visualization expert. Generate a Python script that queries a ")
	b.WriteString("SQLite scenario database and writes a single self-contained HTML file with an ")
	b.WriteString("inline SVG or JS chart of the requested data.\n\n")
	b.WriteString(fmt.Sprintf("Scenario: %s\nTables:\n", scenarioName))
	b.WriteString(SchemaSummary(schema))
	b.WriteString("\n")
	writeScriptRules(&b)
	b.WriteString("- the chart file must be named chart.html and work offline\n")
	b.WriteString("- read-only: no INSERT/UPDATE/DELETE\n\n")
	b.WriteString("--- User Request ---\n")
	b.WriteString(userRequest)
	return b.String()
}

// BuildComparisonPrompt asks for a script that opens several scenario
// databases read-only and produces one comparison artifact.
func BuildComparisonPrompt(userRequest string, scenarioNames []string, schema models.Schema) string {
	var b strings.Builder
	b.WriteString("You are a data analysis expert. Generate a Python script that compares the ")
	b.WriteString("same data across several scenario databases and writes one comparison file.\n\n")
	b.WriteString(fmt.Sprintf("Scenarios to compare: %s\n", strings.Join(scenarioNames, ", ")))
	b.WriteString("All scenarios share this schema:\n")
	b.WriteString(SchemaSummary(schema))
	b.WriteString("\nThe COMPARE_DBS environment variable holds a JSON object mapping scenario ")
	b.WriteString("name to its SQLite database path. Open every database strictly read-only ")
	b.WriteString("(mode=ro URI); never write to any of them.\n\n")
	writeScriptRules(&b)
	b.WriteString("- save the comparison as comparison.html (self-contained) or comparison.json\n\n")
	b.WriteString("--- User Request ---\n")
	b.WriteString(userRequest)
	return b.String()
}

// BuildFileEditPrompt asks for a script that rewrites one existing generated
// file. The original content rides along so the model edits, not reinvents.
func BuildFileEditPrompt(userRequest, filename, originalContent string) string {
	var b strings.Builder
	b.WriteString("You are a careful editor. Generate a Python script that rewrites the file ")
	b.WriteString(fmt.Sprintf("%q (in the current working directory) applying the user's requested ", filename))
	b.WriteString("change and nothing else.\n\n")
	b.WriteString("--- Current File Content ---\n")
	b.WriteString(originalContent)
	b.WriteString("\n--- End File Content ---\n\n")
	writeScriptRules(&b)
	b.WriteString(fmt.Sprintf("- overwrite %q with the full updated content\n\n", filename))
	b.WriteString("--- User Request ---\n")
	b.WriteString(userRequest)
	return b.String()
}

// BuildModificationPrompt asks the model to resolve a requested parameter
// change into a structured JSON modification.
func BuildModificationPrompt(userRequest string, schema models.Schema) string {
	var b strings.Builder
	b.WriteString("You translate a requested parameter change into JSON. The database tables are:\n")
	b.WriteString(SchemaSummary(schema))
	b.WriteString("\nReturn a single JSON object with these fields:\n")
	b.WriteString("- \"table\": target table name\n")
	b.WriteString("- \"column\": target column name\n")
	b.WriteString("- \"selector\": SQL WHERE fragment selecting the rows, or \"\" for all rows\n")
	b.WriteString("- \"new_value\": literal new value as a string, OR\n")
	b.WriteString("- \"percent_delta\": signed percentage number (10 means +10%)\n")
	b.WriteString("Use exactly one of new_value / percent_delta. If the request cannot be ")
	b.WriteString("mapped onto the schema, return {\"error\": \"<short reason>\"}.\n")
	b.WriteString("Return only the JSON, no markdown.\n\n")
	b.WriteString("--- User Request ---\n")
	b.WriteString(userRequest)
	return b.String()
}
