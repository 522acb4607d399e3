package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteAuditLog keeps prediction records in a sqlite table.
type SQLiteAuditLog struct {
	database *sql.DB
}

// InitDB opens (creating if needed) the sqlite database at path.
func InitDB(path string) (*SQLiteAuditLog, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids "database is locked".
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        timestamp TEXT NOT NULL,
        result TEXT NOT NULL
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create predictions table: %w", err)
	}
	return &SQLiteAuditLog{database: database}, nil
}

func (l *SQLiteAuditLog) Append(ctx context.Context, rec AuditRecord) error {
	_, err := l.database.ExecContext(ctx,
		`INSERT INTO predictions (timestamp, result) VALUES (?, ?)`,
		rec.Timestamp, rec.Result)
	return err
}

func (l *SQLiteAuditLog) Records(ctx context.Context) ([]AuditRecord, error) {
	rows, err := l.database.QueryContext(ctx, `
        SELECT timestamp, result
        FROM predictions
        ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]AuditRecord, 0)
	for rows.Next() {
		var rec AuditRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Result); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (l *SQLiteAuditLog) Reset(ctx context.Context) error {
	tx, err := l.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM predictions`); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'predictions'`); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (l *SQLiteAuditLog) Close() error {
	return l.database.Close()
}
