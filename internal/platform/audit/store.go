// Package audit persists the access trail the audit middleware produces.
// Every audited request becomes one row in access_log, alongside the
// structured log line the middleware always emits.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/middleware"
)

// recordTimeout bounds the insert so a slow database cannot hold up the
// request that triggered the entry.
const recordTimeout = 5 * time.Second

// Store writes audit entries to the access_log table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordAccess implements middleware.AuditRecorder.
func (s *Store) RecordAccess(entry middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	roles := entry.UserRoles
	if roles == nil {
		roles = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO access_log (id, user_id, user_roles, resource, patient_id,
			action, method, path, ip_address, user_agent, request_id,
			status_code, accessed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		uuid.New(), entry.UserID, roles, entry.Resource, entry.PatientID,
		entry.Action, entry.Method, entry.Path, entry.IPAddress, entry.UserAgent,
		entry.RequestID, entry.StatusCode, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert access log entry: %w", err)
	}
	return nil
}
