package concertdb

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/migration"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/referral"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	DatabaseType string `json:"databaseType"`
	Migrated     bool   `json:"migrated"`
	Error        string `json:"error,omitempty"`
}

// ReferralRequest is the body of the referral endpoints.
type ReferralRequest struct {
	Code  string        `json:"code"`
	FanID models.UserID `json:"fan_id"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps store and migration errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.Is(err, store.ErrSelfReferral):
		return http.StatusBadRequest
	case errors.Is(err, migration.ErrInProgress):
		return http.StatusConflict
	case errors.Is(err, store.ErrConnectivity):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondError(w, status, err.Error())
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       "healthy",
		DatabaseType: a.status.DatabaseType().String(),
		Migrated:     a.status.IsMigrated(),
	}

	adapter, err := a.Adapter(r.Context())
	if err == nil {
		err = adapter.Ping(r.Context())
	}
	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	stats, err := adapter.GetStats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *App) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.statusView())
}

func (a *App) handleMigrate(w http.ResponseWriter, r *http.Request) {
	result, err := a.Migrate(r.Context(), &MigrateCommand{})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *App) handleReset(w http.ResponseWriter, r *http.Request) {
	a.Reset(&ResetCommand{})
	respondJSON(w, http.StatusOK, a.statusView())
}

func (a *App) handleListArtists(w http.ResponseWriter, r *http.Request) {
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	artists, err := adapter.ListArtists(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, artists)
}

func (a *App) handleListArenas(w http.ResponseWriter, r *http.Request) {
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	arenas, err := adapter.ListArenas(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, arenas)
}

func (a *App) handleListConcerts(w http.ResponseWriter, r *http.Request) {
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	concerts, err := adapter.ListConcerts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, concerts)
}

func (a *App) handleGetConcert(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseConcertID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid concert ID")
		return
	}
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	concerts, err := adapter.GetConcertByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	concert := store.First(concerts)
	if concert == nil {
		respondError(w, http.StatusNotFound, "Concert not found")
		return
	}
	respondJSON(w, http.StatusOK, concert)
}

func (a *App) handleListUserTickets(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tickets, err := adapter.ListTicketsByFan(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tickets)
}

func decodeReferral(w http.ResponseWriter, r *http.Request) (ReferralRequest, bool) {
	var req ReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return req, false
	}
	if req.Code == "" || req.FanID.IsZero() {
		respondError(w, http.StatusBadRequest, "code and fan_id are required")
		return req, false
	}
	return req, true
}

func (a *App) handleValidateReferral(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReferral(w, r)
	if !ok {
		return
	}
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	v, err := referral.Validate(r.Context(), adapter, req.Code, req.FanID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (a *App) handleRedeemReferral(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReferral(w, r)
	if !ok {
		return
	}
	adapter, err := a.Adapter(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	v, err := referral.Redeem(r.Context(), adapter, req.Code, req.FanID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}
