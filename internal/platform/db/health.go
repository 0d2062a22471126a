package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// dbHealthTimeout bounds the readiness ping.
const dbHealthTimeout = 5 * time.Second

// PoolSnapshot is a point-in-time view of the pgx connection pool as
// reported by the /health/db endpoint.
type PoolSnapshot struct {
	Open          int32  `json:"open_conns"`
	Idle          int32  `json:"idle_conns"`
	InUse         int32  `json:"in_use_conns"`
	Max           int32  `json:"max_conns"`
	Acquires      int64  `json:"acquires"`
	EmptyAcquires int64  `json:"empty_acquires"`
	AcquireWait   string `json:"acquire_wait_total"`
}

// SnapshotPool reads the live pool counters.
func SnapshotPool(pool *pgxpool.Pool) PoolSnapshot {
	s := pool.Stat()
	return PoolSnapshot{
		Open:          s.TotalConns(),
		Idle:          s.IdleConns(),
		InUse:         s.AcquiredConns(),
		Max:           s.MaxConns(),
		Acquires:      s.AcquireCount(),
		EmptyAcquires: s.EmptyAcquireCount(),
		AcquireWait:   s.AcquireDuration().String(),
	}
}

// HealthHandler answers the database readiness probe. A successful ping
// returns 200 with status "ok"; a failed ping returns 503 with status
// "unavailable" and the ping error. Both responses include a pool snapshot.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), dbHealthTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unavailable",
				"error":  err.Error(),
				"pool":   SnapshotPool(pool),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ok",
			"pool":   SnapshotPool(pool),
		})
	}
}
