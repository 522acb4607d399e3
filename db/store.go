package db

import "fmt"

const (
	AuditBackendCSV    = "csv"
	AuditBackendSQLite = "sqlite"
)

// OpenAuditLog opens the configured audit log backend.
func OpenAuditLog(backend, csvPath, sqlitePath string) (AuditLog, error) {
	switch backend {
	case "", AuditBackendCSV:
		return NewCSVAuditLog(csvPath)
	case AuditBackendSQLite:
		return InitDB(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", backend)
	}
}
