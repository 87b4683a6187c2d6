package httpapi

import (
	"context"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"

	"mediascraper/internal/cache"
	"mediascraper/internal/store"
)

var processStart = time.Now()

type healthChecker struct {
	store *store.Store
	cache *cache.Cache
}

func newHealthChecker(st *store.Store, c *cache.Cache) *healthChecker {
	return &healthChecker{store: st, cache: c}
}

type healthBody struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Cache  string `json:"cache"`
	Memory struct {
		HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
		SysBytes       uint64 `json:"sys_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return s.respondHealth(c)
}

func (s *Server) handleHealthDetailed(c *fiber.Ctx) error {
	return s.respondHealth(c)
}

func (s *Server) respondHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	body := healthBody{Status: "ok", DB: "ok", Cache: "ok", UptimeSeconds: int64(time.Since(processStart).Seconds())}

	if err := s.store.DB.PingContext(ctx); err != nil {
		body.DB = "error"
		body.Status = "error"
	}
	if !s.cache.Ping(ctx) {
		body.Cache = "error"
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	body.Memory.HeapAllocBytes = m.HeapAlloc
	body.Memory.SysBytes = m.Sys

	status := fiber.StatusOK
	if body.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(body)
}
