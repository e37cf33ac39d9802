package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"imagination/internal/cluster"
	"imagination/internal/corpus"
	"imagination/internal/events"
	"imagination/internal/gazetteer"
	"imagination/internal/query"
	"imagination/pkg/database"
	"imagination/pkg/utils"
)

func main() {
	cfg := utils.LoadServerConfig()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	store := gazetteer.NewRepo(db)

	// A mention pointing at a missing book or place means the backing
	// store is corrupt; refuse to serve from it.
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.ValidateIntegrity(startupCtx); err != nil {
		cancel()
		log.Fatalf("store integrity check failed: %v", err)
	}
	cancel()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	sessions := corpus.NewSessionStore()

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}

		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"sessions":   sessions.Count(),
			"ws_clients": stats.WSClients,
		})
	})

	facade := query.NewFacade(store)
	queryHandler := query.NewHandler(facade)

	// Books (global reference browse)
	booksGroup := router.Group("/books")
	gazetteer.NewHandler(store).RegisterRoutes(booksGroup)
	queryHandler.RegisterBookRoutes(booksGroup)

	// Session-scoped corpus and map routes
	manager := corpus.NewManager(store, cfg.DefaultSampleSize, cfg.SampleSeed)
	scoped := router.Group("/")
	scoped.Use(corpus.SessionMiddleware(sessions))

	corpus.NewHandler(manager, hub).RegisterRoutes(scoped)
	queryHandler.RegisterMapRoutes(scoped)
	cluster.NewHandler(facade).RegisterRoutes(scoped)

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
