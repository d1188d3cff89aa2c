package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
)

const defaultTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	Store   Pinger
	Backend string
	Timeout time.Duration
}

// NewService constructs a new health service.
func NewService(store Pinger, backend string) *Service {
	return &Service{Store: store, Backend: backend, Timeout: defaultTimeout}
}

// Status pings the store and returns a health payload.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	out := map[string]any{"ok": true, "storage": s.Backend}
	if s.Store == nil {
		return out, true
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		telemetry.Warn("health.storage_unreachable", map[string]any{"backend": s.Backend, "err": err.Error()})
		out["ok"] = false
		return out, false
	}
	return out, true
}

// Handle serves GET /health.
func (s *Service) Handle(c *gin.Context) {
	payload, ok := s.Status(c.Request.Context())
	if !ok {
		respond.JSON(c, http.StatusServiceUnavailable, payload)
		return
	}
	respond.OK(c, payload)
}
