package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scenariochat/models"
	"scenariochat/scenario"
)

const conflictRetryDelay = 250 * time.Millisecond

// ApplyModification applies a validated parameter change to the scenario
// database. Percentage deltas are computed against the values stored at apply
// time, inside the transaction, so concurrent edits are never compounded on a
// stale read. A write conflict is retried once with a fresh read.
func ApplyModification(ctx context.Context, sc *scenario.Context, req *models.ModificationRequest) (*models.ModificationResult, error) {
	result, err := applyOnce(ctx, sc, req)
	if err != nil && isWriteConflict(err) {
		select {
		case <-time.After(conflictRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		result, err = applyOnce(ctx, sc, req)
	}
	return result, err
}

func applyOnce(ctx context.Context, sc *scenario.Context, req *models.ModificationRequest) (*models.ModificationResult, error) {
	tx, err := sc.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	where := ""
	if strings.TrimSpace(req.Selector) != "" {
		where = " WHERE " + req.Selector
	}

	oldValue, err := readFirstValue(ctx, tx, sc.Backend, req.Table, req.Column, where)
	if err != nil {
		return nil, err
	}

	var update string
	switch {
	case req.PercentDelta != nil:
		// (100 + delta) / 100 instead of a premultiplied factor: integral
		// percentages like +10% stay exact (100 -> 110, not 110.00000000000001)
		update = fmt.Sprintf(`UPDATE %q SET %q = %q * (100 + %s) / 100.0%s`,
			req.Table, req.Column, req.Column, formatFloat(*req.PercentDelta), where)
	case req.NewValue != nil:
		update = fmt.Sprintf(`UPDATE %q SET %q = %s%s`,
			req.Table, req.Column, quoteLiteral(*req.NewValue), where)
	default:
		return nil, fmt.Errorf("modification has no new value or delta")
	}

	res, err := tx.ExecContext(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("update failed: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, fmt.Errorf("no rows in %s matched the selector", req.Table)
	}

	newValue, err := readFirstValue(ctx, tx, sc.Backend, req.Table, req.Column, where)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit modification: %w", err)
	}

	return &models.ModificationResult{
		Table:       req.Table,
		Column:      req.Column,
		UpdatedRows: updated,
		OldValue:    oldValue,
		NewValue:    newValue,
		Summary:     fmt.Sprintf("Updated %s.%s from %s to %s", req.Table, req.Column, oldValue, newValue),
	}, nil
}

func readFirstValue(ctx context.Context, tx *sql.Tx, backend, table, column, where string) (string, error) {
	var query string
	if backend == scenario.BackendSQLServer {
		query = fmt.Sprintf(`SELECT TOP 1 %q FROM %q%s`, column, table, where)
	} else {
		query = fmt.Sprintf(`SELECT %q FROM %q%s LIMIT 1`, column, table, where)
	}

	var value interface{}
	err := tx.QueryRowContext(ctx, query).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no rows in %s matched the selector", table)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read current value of %s.%s: %w", table, column, err)
	}
	return formatValue(value), nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quoteLiteral(v string) string {
	trimmed := strings.TrimSpace(v)
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return trimmed
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func isWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") ||
		strings.Contains(msg, "locked") ||
		strings.Contains(msg, "deadlock")
}
