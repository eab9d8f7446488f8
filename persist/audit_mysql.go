package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// AuditExporter exports terminal workflow records (Completed, Failed,
// Cancelled) to an external MySQL/MariaDB database for compliance and
// cross-node audit trails. It is a write-behind sink, not a store: the
// embedded per-node store remains the single source of truth for an
// in-flight workflow, and nothing ever reads a workflow back from here
// (spec §4.1 requires the embedded store stay the owner-node-local source of
// truth; this facade is additive).
//
// Adapted from the teacher's MySQLStore (graph/store/mysql.go): same
// connection-pool construction and CREATE TABLE IF NOT EXISTS bootstrap
// pattern, narrowed from a generic workflow-step/checkpoint store down to a
// single append-only audit table.
type AuditExporter struct {
	db *sql.DB
}

// NewAuditExporter opens dsn and ensures the audit table exists.
func NewAuditExporter(dsn string) (*AuditExporter, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: audit exporter: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persist: audit exporter: ping: %w", err)
	}

	exporter := &AuditExporter{db: db}
	if err := exporter.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return exporter, nil
}

func (a *AuditExporter) createTable(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS workflow_audit (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			workflow_id VARCHAR(255) NOT NULL,
			workflow_type VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			error TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_workflow_id (workflow_id),
			INDEX idx_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("persist: audit exporter: create table: %w", err)
	}
	return nil
}

// Export inserts one audit row for a terminal workflow. It is safe to call
// more than once for the same workflow; each call appends a new row so the
// audit trail records every terminal transition, not just the last one.
func (a *AuditExporter) Export(ctx context.Context, meta WorkflowMeta) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO workflow_audit
			(workflow_id, workflow_type, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, meta.WorkflowID, meta.WorkflowType, string(meta.Status), meta.Error, meta.CreatedAt, meta.UpdatedAt)
	if err != nil {
		return fmt.Errorf("persist: audit exporter: export: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (a *AuditExporter) Close() error {
	return a.db.Close()
}
