package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"workpile/internal/store"
	"workpile/internal/telemetry"
	"workpile/internal/work"
)

type Server struct {
	r     *chi.Mux
	works *work.Service
	store store.Store
}

func NewServer(works *work.Service, st store.Store) http.Handler {
	return NewServerWithDebug(works, st, false)
}

func NewServerWithDebug(works *work.Service, st store.Store, enableDebug bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{r: r, works: works, store: st}

	r.Post("/work", s.submitWork)
	r.Get("/work", s.health)
	r.Get("/work/{id}", s.getWork)
	r.Handle("/metrics", telemetry.Handler())

	// Debug routes (pprof)
	if enableDebug {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		r.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	}

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type submitReq struct {
	Data string `json:"data"`
}

func (s *Server) submitWork(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if req.Data == "" {
		http.Error(w, "data is required", 400)
		return
	}
	if _, err := s.works.Submit(r.Context(), req.Data); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type workResp struct {
	ID          string     `json:"id"`
	Data        string     `json:"data"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	State       string     `json:"state"`
}

func (s *Server) getWork(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wk, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", 404)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusOK, workResp{
		ID:          wk.ID,
		Data:        wk.Data,
		RequestedAt: wk.RequestedAt,
		CompletedAt: wk.CompletedAt,
		State:       wk.State(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
