package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestLogs(t *testing.T) map[string]AuditLog {
	t.Helper()
	dir := t.TempDir()

	csvLog, err := OpenAuditLog(AuditBackendCSV, filepath.Join(dir, "prediction_log.csv"), "")
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	sqliteLog, err := OpenAuditLog(AuditBackendSQLite, "", filepath.Join(dir, "predictions.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		csvLog.Close()
		sqliteLog.Close()
	})
	return map[string]AuditLog{"csv": csvLog, "sqlite": sqliteLog}
}

func TestAuditLogAppendAndReset(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for name, log := range openTestLogs(t) {
		t.Run(name, func(t *testing.T) {
			records, err := log.Records(ctx)
			if err != nil {
				t.Fatalf("records on empty log: %v", err)
			}
			if len(records) != 0 {
				t.Fatalf("expected no records, got %d", len(records))
			}

			const n = 7
			for i := 0; i < n; i++ {
				result := "Negative"
				if i%2 == 0 {
					result = "Positive"
				}
				if err := log.Append(ctx, NewAuditRecord(base.Add(time.Duration(i)*time.Second), result)); err != nil {
					t.Fatalf("append %d: %v", i, err)
				}
			}

			records, err = log.Records(ctx)
			if err != nil {
				t.Fatalf("records: %v", err)
			}
			if len(records) != n {
				t.Fatalf("expected %d records, got %d", n, len(records))
			}
			if records[0].Timestamp != "2024-03-01T09:00:00Z" || records[0].Result != "Positive" {
				t.Fatalf("unexpected first record: %+v", records[0])
			}
			if records[1].Result != "Negative" {
				t.Fatalf("unexpected second record: %+v", records[1])
			}

			if err := log.Reset(ctx); err != nil {
				t.Fatalf("reset: %v", err)
			}
			records, err = log.Records(ctx)
			if err != nil {
				t.Fatalf("records after reset: %v", err)
			}
			if len(records) != 0 {
				t.Fatalf("expected empty log after reset, got %d", len(records))
			}
		})
	}
}

func TestCSVAuditLogFileFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "logs", "prediction_log.csv")
	log, err := NewCSVAuditLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := log.Append(ctx, NewAuditRecord(at, "Positive")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(ctx, NewAuditRecord(at, "Negative")); err != nil {
		t.Fatalf("append: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "Timestamp,Result\n2024-03-01T09:00:00Z,Positive\n2024-03-01T09:00:00Z,Negative\n"
	if string(raw) != want {
		t.Fatalf("unexpected file contents:\n%s", raw)
	}

	if err := log.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	raw, _ = os.ReadFile(path)
	if strings.TrimSpace(string(raw)) != "Timestamp,Result" {
		t.Fatalf("expected header only after reset, got %q", raw)
	}
}

func TestCSVAuditLogMalformedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prediction_log.csv")
	if err := os.WriteFile(path, []byte("When,What\nx,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	log, _ := NewCSVAuditLog(path)
	if _, err := log.Records(context.Background()); err == nil {
		t.Fatal("expected error for malformed header")
	}
}

func TestOpenAuditLogUnknownBackend(t *testing.T) {
	if _, err := OpenAuditLog("redis", "", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
