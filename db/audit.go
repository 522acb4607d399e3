package db

import (
	"context"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for every persisted timestamp.
const TimestampLayout = time.RFC3339

// AuditRecord is one logged prediction outcome.
type AuditRecord struct {
	Timestamp string `json:"timestamp"`
	Result    string `json:"result"`
}

func NewAuditRecord(at time.Time, result string) AuditRecord {
	return AuditRecord{Timestamp: at.Format(TimestampLayout), Result: result}
}

// AuditLog is an append-only prediction log with an explicit reset.
type AuditLog interface {
	Append(ctx context.Context, rec AuditRecord) error
	Records(ctx context.Context) ([]AuditRecord, error)
	Reset(ctx context.Context) error
	Close() error
}
