// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"runtime"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/order"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

type OrderSummarizer interface {
	Summary(ctx context.Context) (*order.Summary, error)
}

type AppointmentCounter interface {
	PendingCount(ctx context.Context) (int, error)
}

type MessageCounter interface {
	Count(ctx context.Context) (int, error)
}

type RealtimeStats interface {
	Stats() realtime.Stats
}

type Handler struct {
	dbStats      func() sql.DBStats
	redisStats   func() *redis.PoolStats
	redisPing    func(ctx context.Context) error
	dbPing       func(ctx context.Context) error
	orders       OrderSummarizer
	appointments AppointmentCounter
	messages     MessageCounter
	realtime     RealtimeStats
}

type HandlerConfig struct {
	DBStats      func() sql.DBStats
	RedisStats   func() *redis.PoolStats
	RedisPing    func(ctx context.Context) error
	DBPing       func(ctx context.Context) error
	Orders       OrderSummarizer
	Appointments AppointmentCounter
	Messages     MessageCounter
	Realtime     RealtimeStats
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:      cfg.DBStats,
		redisStats:   cfg.RedisStats,
		redisPing:    cfg.RedisPing,
		dbPing:       cfg.DBPing,
		orders:       cfg.Orders,
		appointments: cfg.Appointments,
		messages:     cfg.Messages,
		realtime:     cfg.Realtime,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, staffOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(staffOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/business", h.GetBusinessStats)
		r.Get("/stats/realtime", h.GetRealtimeStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := SystemStatsResponse{
		Business: h.collectBusiness(ctx),
		Realtime: h.getRealtimeStats(),
		Database: DatabaseStatus{
			Healthy: pingOK(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: pingOK(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Runtime: readRuntime(),
	}

	core.OK(w, response)
}

func (h *Handler) GetBusinessStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.collectBusiness(r.Context()))
}

func (h *Handler) GetRealtimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getRealtimeStats())
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, readRuntime())
}

// collectBusiness queries the three tables concurrently. A failed query
// leaves its section empty and is logged.
func (h *Handler) collectBusiness(ctx context.Context) BusinessStats {
	var (
		stats BusinessStats
		wg    sync.WaitGroup
	)

	if h.orders != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := h.orders.Summary(ctx)
			if err != nil {
				slog.WarnContext(ctx, "admin stats: orders", "error", err)
				return
			}
			stats.Orders = sum
		}()
	}

	if h.appointments != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := h.appointments.PendingCount(ctx)
			if err != nil {
				slog.WarnContext(ctx, "admin stats: appointments", "error", err)
				return
			}
			stats.PendingAppointments = &n
		}()
	}

	if h.messages != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := h.messages.Count(ctx)
			if err != nil {
				slog.WarnContext(ctx, "admin stats: messages", "error", err)
				return
			}
			stats.ContactMessages = &n
		}()
	}

	wg.Wait()
	return stats
}

func pingOK(ctx context.Context, ping func(context.Context) error) bool {
	if ping == nil {
		return true
	}
	return ping(ctx) == nil
}

func readRuntime() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getRealtimeStats() *realtime.Stats {
	if h.realtime == nil {
		return nil
	}
	s := h.realtime.Stats()
	return &s
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

type SystemStatsResponse struct {
	Business BusinessStats   `json:"business"`
	Realtime *realtime.Stats `json:"realtime,omitempty"`
	Database DatabaseStatus  `json:"database"`
	Redis    RedisStatus     `json:"redis"`
	Runtime  RuntimeStats    `json:"runtime"`
}

type BusinessStats struct {
	Orders              *order.Summary `json:"orders,omitempty"`
	PendingAppointments *int           `json:"pending_appointments,omitempty"`
	ContactMessages     *int           `json:"contact_messages,omitempty"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
