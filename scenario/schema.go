package scenario

import (
	"database/sql"
	"fmt"

	"scenariochat/models"
)

// snapshotSchema reads the current table layout of a scenario database.
func snapshotSchema(db *sql.DB, sqlServer bool) (models.Schema, error) {
	if sqlServer {
		return snapshotSQLServerSchema(db)
	}
	return snapshotSQLiteSchema(db)
}

func snapshotSQLiteSchema(db *sql.DB) (models.Schema, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	schema := make(models.Schema, len(tables))
	for _, table := range tables {
		cols, err := sqliteColumns(db, table)
		if err != nil {
			return nil, err
		}
		schema[table] = cols
	}
	return schema, nil
}

func sqliteColumns(db *sql.DB, table string) ([]models.Column, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []models.Column
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, models.Column{Name: name, Type: typ})
	}
	return cols, rows.Err()
}

func snapshotSQLServerSchema(db *sql.DB) (models.Schema, error) {
	rows, err := db.Query(`SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS
		ORDER BY TABLE_NAME, ORDINAL_POSITION`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	defer rows.Close()

	schema := make(models.Schema)
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return nil, err
		}
		schema[table] = append(schema[table], models.Column{Name: column, Type: dataType})
	}
	return schema, rows.Err()
}
