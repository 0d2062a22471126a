package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/auth"
)

// AuditEntry is one access to clinical data: who touched which resource, for
// which patient, from where, and what came of it.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Resource   string
	PatientID  string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. The middleware treats persistence as
// best effort: a failing recorder is logged, never surfaced to the client.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// Audit emits one structured access record per request under /api/v1/ and
// hands a copy to every recorder. The handler runs first so the entry can
// carry the response status.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isAuditablePath(c.Request().URL.Path) {
				return next(c)
			}

			err := next(c)
			entry := newAuditEntry(c)

			for _, rec := range recorders {
				if rec == nil {
					continue
				}
				if recErr := rec.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}
			entry.emit(logger)

			return err
		}
	}
}

// newAuditEntry assembles the access record after the handler has run.
func newAuditEntry(c echo.Context) AuditEntry {
	req := c.Request()
	rid, _ := c.Get("request_id").(string)

	return AuditEntry{
		UserID:     auth.UserIDFromContext(req.Context()),
		UserRoles:  auth.RolesFromContext(req.Context()),
		Resource:   extractResource(req.URL.Path),
		PatientID:  extractPatientID(c),
		Action:     httpMethodToAction(req.Method),
		IPAddress:  c.RealIP(),
		UserAgent:  req.UserAgent(),
		Path:       req.URL.Path,
		Method:     req.Method,
		Timestamp:  time.Now().UTC(),
		RequestID:  rid,
		StatusCode: c.Response().Status,
	}
}

func (e AuditEntry) emit(logger zerolog.Logger) {
	logger.Info().
		Str("type", "access_audit").
		Str("request_id", e.RequestID).
		Str("user_id", e.UserID).
		Strs("user_roles", e.UserRoles).
		Str("resource", e.Resource).
		Str("patient_id", e.PatientID).
		Str("action", e.Action).
		Str("method", e.Method).
		Str("path", e.Path).
		Str("remote_ip", e.IPAddress).
		Int("status", e.StatusCode).
		Msg("record_access")
}

// isAuditablePath limits auditing to the versioned API; health probes and
// websocket upgrades stay out of the trail.
func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource yields the first path segment under the API prefix, which
// is the collection name in every route this server registers.
func extractResource(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if first, _, _ := strings.Cut(rest, "/"); first != "" {
		return first
	}
	return "unknown"
}

// extractPatientID finds the patient a request is about: a UUID directly
// under /api/v1/patients/, or a patient_id query parameter on list routes.
func extractPatientID(c echo.Context) string {
	if rest, ok := strings.CutPrefix(c.Request().URL.Path, "/api/v1/patients/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		if uuid.Validate(id) == nil {
			return id
		}
	}
	return c.QueryParam("patient_id")
}
