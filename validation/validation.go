package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"scenariochat/models"
)

// IsValidPrompt checks if a prompt makes sense (not gibberish).
// Lenient: better to process an odd prompt than to reject a valid one.
func IsValidPrompt(prompt string) bool {
	trimmed := strings.TrimSpace(prompt)

	if len(trimmed) < 3 || len(trimmed) > 10000 {
		return false
	}

	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return false
	}
	// single words still fall through to the mashing and ratio checks below
	if len(words) == 1 && isRepeatedCharacters(words[0]) {
		return false
	}

	if hasExcessiveRepetition(trimmed) {
		return false
	}
	if hasKeyboardMashing(trimmed) {
		return false
	}

	// At least 30% of non-space characters should be letters.
	letterCount := 0
	totalChars := 0
	digitCount := 0
	punctCount := 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		totalChars++
		switch {
		case unicode.IsLetter(r):
			letterCount++
		case unicode.IsDigit(r):
			digitCount++
		case unicode.IsPunct(r):
			punctCount++
		}
	}
	if totalChars == 0 {
		return false
	}
	if float64(letterCount)/float64(totalChars) < 0.3 {
		return false
	}
	if float64(digitCount)/float64(totalChars) > 0.5 {
		return false
	}
	if float64(punctCount)/float64(totalChars) > 0.3 {
		return false
	}

	return true
}

// isRepeatedCharacters checks if a string is just one character repeated
func isRepeatedCharacters(s string) bool {
	if len(s) < 3 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// hasExcessiveRepetition checks for runs like "aaaa" or "1111"
func hasExcessiveRepetition(s string) bool {
	for i := 0; i+3 < len(s); i++ {
		if s[i] == s[i+1] && s[i] == s[i+2] && s[i] == s[i+3] {
			return true
		}
	}
	return false
}

// hasKeyboardMashing checks for short keyboard-row sequences
func hasKeyboardMashing(s string) bool {
	lower := strings.ToLower(s)
	mashingPatterns := []string{
		"asdfghjkl", "qwertyuiop", "zxcvbnm",
		"asdf", "qwer", "zxcv", "hjkl",
	}
	for _, pattern := range mashingPatterns {
		if strings.Contains(lower, pattern) && len(s) < 30 {
			return true
		}
	}
	return false
}

// ValidateModification checks a prepared parameter change against the
// scenario schema: the target table and column must exist and a literal new
// value must be type-compatible with the column.
func ValidateModification(req *models.ModificationRequest, schema models.Schema) error {
	if req == nil {
		return fmt.Errorf("no modification request")
	}
	if strings.TrimSpace(req.Table) == "" || strings.TrimSpace(req.Column) == "" {
		return fmt.Errorf("modification target is incomplete (table=%q, column=%q)", req.Table, req.Column)
	}

	columns, ok := findTable(schema, req.Table)
	if !ok {
		return fmt.Errorf("table %q not found in scenario schema", req.Table)
	}

	var column *models.Column
	for i := range columns {
		if strings.EqualFold(columns[i].Name, req.Column) {
			column = &columns[i]
			break
		}
	}
	if column == nil {
		return fmt.Errorf("column %q not found in table %q", req.Column, req.Table)
	}

	if req.NewValue == nil && req.PercentDelta == nil {
		return fmt.Errorf("modification has neither a new value nor a percentage delta")
	}
	if req.NewValue != nil && req.PercentDelta != nil {
		return fmt.Errorf("modification has both a new value and a percentage delta")
	}

	if req.PercentDelta != nil && !isNumericType(column.Type) {
		return fmt.Errorf("percentage delta requires a numeric column, %s.%s is %s", req.Table, req.Column, column.Type)
	}
	if req.NewValue != nil && isNumericType(column.Type) {
		if _, err := strconv.ParseFloat(strings.TrimSpace(*req.NewValue), 64); err != nil {
			return fmt.Errorf("value %q is not valid for numeric column %s.%s", *req.NewValue, req.Table, req.Column)
		}
	}

	return nil
}

func findTable(schema models.Schema, name string) ([]models.Column, bool) {
	if cols, ok := schema[name]; ok {
		return cols, true
	}
	for table, cols := range schema {
		if strings.EqualFold(table, name) {
			return cols, true
		}
	}
	return nil, false
}

func isNumericType(colType string) bool {
	t := strings.ToUpper(colType)
	for _, numeric := range []string{"INT", "REAL", "FLOAT", "DOUBLE", "NUMERIC", "DECIMAL", "MONEY"} {
		if strings.Contains(t, numeric) {
			return true
		}
	}
	return false
}
