package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
)

// API wires the record store, object store, and authenticator into the
// gateway's HTTP surface.
type API struct {
	logger  *slog.Logger
	store   *Store
	objects *ObjectStore
	auth    *Authenticator
	metrics *metrics.GatewayMetrics // optional
}

// NewAPI creates the HTTP API.
func NewAPI(logger *slog.Logger, store *Store, objects *ObjectStore, auth *Authenticator, m *metrics.GatewayMetrics) (*API, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if store == nil {
		return nil, errors.New("record store cannot be nil")
	}
	if objects == nil {
		return nil, errors.New("object store cannot be nil")
	}
	if auth == nil {
		return nil, errors.New("authenticator cannot be nil")
	}
	return &API{logger: logger, store: store, objects: objects, auth: auth, metrics: m}, nil
}

// Router builds the gateway route table.
func (api *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(api.metricsMiddleware)

	r.HandleFunc("/healthz", api.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/auth/signup", api.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/auth/login", api.handleLogin).Methods(http.MethodPost)

	authed := r.PathPrefix("/api/v1").Subrouter()
	authed.Use(api.auth.Middleware)
	authed.HandleFunc("/auth/me", api.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/records/{table}/select", api.handleSelect).Methods(http.MethodPost)
	authed.HandleFunc("/records/{table}/update", api.handleUpdate).Methods(http.MethodPost)
	authed.HandleFunc("/records/{table}/insert", api.handleInsert).Methods(http.MethodPost)
	authed.HandleFunc("/objects/{bucket}", api.handleUpload).Methods(http.MethodPost)

	// Object reads are public: profile image URLs are shared as plain links.
	r.HandleFunc("/storage/{bucket}/{key:.+}", api.handleDownload).Methods(http.MethodGet)

	return r
}

type signupRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (api *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := api.auth.Signup(r.Context(), req.Phone, req.Password, req.FullName)
	if errors.Is(err, ErrPhoneTaken) {
		api.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if errors.Is(err, ErrInvalidCredentials) {
		api.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		api.logger.Error("signup failed", "error", err)
		api.writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	api.writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  any    `json:"user"`
	Token string `json:"token"`
}

func (api *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := api.auth.Login(r.Context(), req.Phone, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		api.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		api.logger.Error("login failed", "error", err)
		api.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	api.writeJSON(w, http.StatusOK, loginResponse{User: user, Token: token})
}

func (api *API) handleMe(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

func (api *API) handleSelect(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	user := UserFromContext(r.Context())

	var query SelectQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rows, err := api.store.Select(r.Context(), table, user.ID, query)
	if err != nil {
		api.writeStoreError(w, table, err)
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (api *API) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	user := UserFromContext(r.Context())

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	row, err := api.store.Update(r.Context(), table, user.ID, req)
	if err != nil {
		api.writeStoreError(w, table, err)
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"row": row})
}

func (api *API) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	user := UserFromContext(r.Context())

	var req struct {
		Record Row `json:"record"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	row, err := api.store.Insert(r.Context(), table, user.ID, req.Record)
	if err != nil {
		api.writeStoreError(w, table, err)
		return
	}

	api.writeJSON(w, http.StatusCreated, map[string]any{"row": row})
}

func (api *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	bucket := mux.Vars(r)["bucket"]

	if err := r.ParseMultipartForm(MaxObjectSize); err != nil {
		api.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	key := r.FormValue("key")
	file, header, err := r.FormFile("file")
	if err != nil {
		api.writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxObjectSize+1))
	if err != nil {
		api.writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(data)) > MaxObjectSize {
		api.writeError(w, http.StatusRequestEntityTooLarge, ErrObjectTooLarge.Error())
		return
	}

	obj, err := api.objects.Put(r.Context(), bucket, key, header.Header.Get("Content-Type"), data)
	if errors.Is(err, ErrBadObjectKey) {
		api.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		api.logger.Error("object upload failed", "bucket", bucket, "key", key, "error", err)
		api.writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	api.writeJSON(w, http.StatusCreated, map[string]any{
		"bucket":     obj.Bucket,
		"key":        obj.Key,
		"size":       obj.Size,
		"public_url": api.objects.PublicURL(obj.Bucket, obj.Key),
	})
}

func (api *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	obj, err := api.objects.Get(r.Context(), vars["bucket"], vars["key"])
	if errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrBadObjectKey) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		api.logger.Error("object download failed", "error", err)
		api.writeError(w, http.StatusInternalServerError, "download failed")
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(obj.Data)
}

func (api *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	api.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStoreError maps record store errors to HTTP statuses.
func (api *API) writeStoreError(w http.ResponseWriter, table string, err error) {
	switch {
	case errors.Is(err, ErrUnknownTable):
		api.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnknownColumn), errors.Is(err, ErrReadOnly), errors.Is(err, ErrReadStateBack):
		api.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoMatch):
		api.writeError(w, http.StatusNotFound, err.Error())
	default:
		api.logger.Error("record operation failed", "table", table, "error", err)
		api.writeError(w, http.StatusInternalServerError, "record operation failed")
	}
}

func (api *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		api.logger.Error("failed to encode response", "error", err)
	}
}

func (api *API) writeError(w http.ResponseWriter, status int, message string) {
	api.writeJSON(w, status, map[string]string{"error": message})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware tracks request counts, durations, and in-flight gauges
// per route template.
func (api *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		api.metrics.HTTPRequestsInFlight.WithLabelValues(r.Method, route).Inc()
		defer api.metrics.HTTPRequestsInFlight.WithLabelValues(r.Method, route).Dec()

		timer := prometheus.NewTimer(api.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route))
		defer timer.ObserveDuration()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		api.metrics.HTTPRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
	})
}
