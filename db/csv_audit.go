package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var auditHeader = []string{"Timestamp", "Result"}

// CSVAuditLog stores records in a CSV file with a Timestamp,Result header.
// Writers in this process are serialized; separate processes sharing the file
// are not coordinated.
type CSVAuditLog struct {
	path string
	mu   sync.Mutex
}

func NewCSVAuditLog(path string) (*CSVAuditLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	return &CSVAuditLog{path: path}, nil
}

func (l *CSVAuditLog) Path() string { return l.path }

func (l *CSVAuditLog) Append(_ context.Context, rec AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(auditHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{rec.Timestamp, rec.Result}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (l *CSVAuditLog) Records(_ context.Context) ([]AuditRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []AuditRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(auditHeader)

	header, err := r.Read()
	if err == io.EOF {
		return []AuditRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log header: %w", err)
	}
	if header[0] != auditHeader[0] || header[1] != auditHeader[1] {
		return nil, fmt.Errorf("malformed audit log header %v", header)
	}

	records := make([]AuditRecord, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read audit log: %w", err)
		}
		records = append(records, AuditRecord{Timestamp: row[0], Result: row[1]})
	}
	return records, nil
}

// Reset truncates the log to its header.
func (l *CSVAuditLog) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("reset audit log: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(auditHeader); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (l *CSVAuditLog) Close() error { return nil }
