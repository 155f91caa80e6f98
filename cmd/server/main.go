package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gurulink/crm-dashboard/internal/actions"
	"github.com/gurulink/crm-dashboard/internal/adminusers"
	"github.com/gurulink/crm-dashboard/internal/api"
	"github.com/gurulink/crm-dashboard/internal/backend"
	"github.com/gurulink/crm-dashboard/internal/config"
	"github.com/gurulink/crm-dashboard/internal/notifications"
	"github.com/gurulink/crm-dashboard/internal/roster"
	"github.com/gurulink/crm-dashboard/internal/session"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale/stub processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

// newSessionStore connects to Redis when configured, falling back to the
// in-memory store for local development.
func newSessionStore(cfg config.SessionConfig) session.Store {
	if cfg.RedisAddr == "" {
		log.Println("Session: no Redis configured, using in-memory store")
		return session.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Session: Redis at %s unreachable (%v), using in-memory store", cfg.RedisAddr, err)
		return session.NewMemoryStore()
	}

	log.Printf("Session: using Redis at %s", cfg.RedisAddr)
	return session.NewRedisStore(client, cfg.TTL())
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  GuruLink CRM Dashboard Server (cmd/server/main.go)       ║")
	log.Println("║  Admin dashboard over the GuruLink backend API            ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("ADMIN_API_BASE_URL") != "" {
		log.Println("[config] ADMIN_API_BASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Session store and admin API gateway
	sessions := newSessionStore(cfg.Session)
	gateway := backend.NewClient(cfg.Backend, sessions)
	log.Printf("Backend: admin API at %s", gateway.BaseURL())

	// Controllers
	rosterCtl := roster.NewController(gateway, cfg.Roster.DefaultPageSize, cfg.Roster.DetailWorkers)
	orchestrator := actions.NewOrchestrator(gateway, rosterCtl, actions.AlwaysConfirm)
	poller := notifications.NewPoller(gateway, cfg.Polling.Interval(), cfg.Polling.NotificationLimit)
	admins := adminusers.NewManager(gateway)

	// Start the notification poller in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	// HTTP server
	handlers := api.NewHandlers(gateway, sessions, rosterCtl, orchestrator, poller, admins)
	server := api.NewServer(cfg.Server, handlers, cfg.CORS.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
