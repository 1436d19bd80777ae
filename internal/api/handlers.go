// Package api wires up the Gin HTTP router carrying both the external
// client surface and the internal peer surface on one dispatcher: an
// external request handled here fans out into peer requests serviced by
// this same dispatcher on other replicas, so both surfaces must be
// concurrently servicable or a single-replica cluster would deadlock.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"abdreg/internal/metrics"
	"abdreg/internal/register"
)

// Handler holds the dependencies every route needs.
type Handler struct {
	core     *register.Core
	counters *metrics.Counters
	selfID   string
	peerN    int
	started  time.Time
}

// NewHandler creates a Handler. peerCount is the number of OTHER replicas,
// reported on /health for operational visibility.
func NewHandler(core *register.Core, counters *metrics.Counters, selfID string, peerCount int) *Handler {
	return &Handler{
		core:     core,
		counters: counters,
		selfID:   selfID,
		peerN:    peerCount,
		started:  time.Now(),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	// External client surface.
	r.GET("/register", h.Read)
	r.POST("/register", h.Write)

	// Internal peer surface.
	r.GET("/register/local", h.InternalRead)
	r.POST("/register/local", h.InternalWrite)

	// Ambient — health and counters, not part of the ABD contract itself.
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics)
}

// ─── External client surface ──────────────────────────────────────────────

// Read handles GET /register. Body is the current Value as JSON, unwrapped.
func (h *Handler) Read(c *gin.Context) {
	v, err := h.core.Read(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", rawOrNull(v))
}

// Write handles POST /register. Request body is a Value as JSON; response
// body is empty with status 200.
func (h *Handler) Write(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is not valid JSON"})
		return
	}

	if err := h.core.Write(c.Request.Context(), body); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// ─── Internal peer surface ────────────────────────────────────────────────

// InternalRead handles GET /register/local: returns [value, [seq, tiebreaker]].
func (h *Handler) InternalRead(c *gin.Context) {
	body, err := h.core.LocalGet(c.Request.Context(), "/register/local")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// InternalWrite handles POST /register/local: applies the merge rule and
// acknowledges every decodable body with an empty 200 body; a body that
// does not decode as the wire tuple gets a 400.
func (h *Handler) InternalWrite(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}
	if _, err := h.core.LocalPost(c.Request.Context(), "/register/local", body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// ─── Ambient ──────────────────────────────────────────────────────────────

// Health reports liveness and cluster shape.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"node":       h.selfID,
		"status":     "ok",
		"peer_count": h.peerN,
		"uptime":     time.Since(h.started).String(),
	})
}

// Metrics reports the operation counters.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.counters.Snapshot())
}

func rawOrNull(v []byte) []byte {
	if v == nil {
		return []byte("null")
	}
	return v
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, register.ErrQuorumFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, register.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
