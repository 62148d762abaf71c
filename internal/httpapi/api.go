package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"remitdesk.org/internal/audit"
	"remitdesk.org/internal/auth"
	"remitdesk.org/internal/cache"
	"remitdesk.org/internal/obs"
	"remitdesk.org/internal/store"
)

// ReadyProbe checks the external backends the service depends on.
type ReadyProbe struct {
	DB    *sql.DB
	Cache *cache.Cache
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	// Cache unavailability degrades reads but does not make the service
	// unready; it is checked only for the diagnostics payload.
	return nil
}

// Options tunes the HTTP layer.
type Options struct {
	Version      string
	Production   bool
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	store      store.Store
	tokens     *auth.Tokens
	cache      *cache.Cache
	recorder   *audit.Recorder
	readyProbe ReadyProbe

	version      string
	production   bool
	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

// New wires routes over the given backends.
func New(st store.Store, tokens *auth.Tokens, c *cache.Cache, rp ReadyProbe, opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		store:        st,
		tokens:       tokens,
		cache:        c,
		recorder:     audit.NewRecorder(st.Audit()),
		readyProbe:   rp,
		version:      opts.Version,
		production:   opts.Production,
		rateBurst:    opts.RateBurst,
		ratePerSec:   opts.RatePerSec,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	a.mux.HandleFunc("/healthz", a.healthz)
	a.mux.HandleFunc("/readyz", a.ready)
	a.mux.HandleFunc("/v1/info", a.info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/transactions", a.handleTransactions)
	a.mux.HandleFunc("/v1/audit", a.handleAudit)
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/stats", a.handleUserStats)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = LoggingJSON(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- health handlers ---

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "remitdesk-api",
		"version": a.version,
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	payload := map[string]any{"status": "ready"}
	if a.readyProbe.Cache != nil {
		if err := a.readyProbe.Cache.Ping(r.Context()); err != nil {
			payload["cache"] = "unavailable"
		} else {
			payload["cache"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "remitdesk-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
