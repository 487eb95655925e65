package concertdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout bounds how long in-flight requests may run after ctx is
// cancelled.
const shutdownTimeout = 5 * time.Second

// Router builds the HTTP routes.
//
// # API Endpoints
//
// Health and metrics:
//
//	GET  /health                          - Active store, migration flag and ping
//	GET  /metrics                         - Prometheus metrics
//
// Administration:
//
//	GET  /api/admin/stats                 - Entity counts from the active store
//	GET  /api/admin/migration/status      - Migration status
//	POST /api/admin/migrate               - Copy relational data into the document store
//	POST /api/admin/migration/reset       - Switch back to the relational store
//
// Catalog:
//
//	GET  /api/artists                     - All artists
//	GET  /api/arenas                      - All arenas with zones
//	GET  /api/concerts                    - All concerts ordered by date
//	GET  /api/concerts/{id}               - One concert
//	GET  /api/users/{id}/tickets          - Tickets bought by a fan
//
// Referrals:
//
//	POST /api/referrals/validate          - Check a referral code for a fan
//	POST /api/referrals/redeem            - Spend a referral code
//
// Every request is served by whichever store the migration status selects at
// the time of the request.
func (a *App) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(a.logRequests)

	router.HandleFunc("/health", a.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/admin/stats", a.handleStats).Methods("GET")
	api.HandleFunc("/admin/migration/status", a.handleMigrationStatus).Methods("GET")
	api.HandleFunc("/admin/migrate", a.handleMigrate).Methods("POST")
	api.HandleFunc("/admin/migration/reset", a.handleReset).Methods("POST")

	api.HandleFunc("/artists", a.handleListArtists).Methods("GET")
	api.HandleFunc("/arenas", a.handleListArenas).Methods("GET")
	api.HandleFunc("/concerts", a.handleListConcerts).Methods("GET")
	api.HandleFunc("/concerts/{id}", a.handleGetConcert).Methods("GET")
	api.HandleFunc("/users/{id}/tickets", a.handleListUserTickets).Methods("GET")

	api.HandleFunc("/referrals/validate", a.handleValidateReferral).Methods("POST")
	api.HandleFunc("/referrals/redeem", a.handleRedeemReferral).Methods("POST")

	return router
}

// Run serves the HTTP API until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	a.logger.Info().
		Str("addr", addr).
		Str("type", a.status.DatabaseType().String()).
		Bool("migrated", a.status.IsMigrated()).
		Msg("Starting concertdb server")

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}
