package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.io/infrasutra/orgmail/internal/config"
	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/sse"
	"github.io/infrasutra/orgmail/internal/store"
	"github.io/infrasutra/orgmail/internal/view"
	webassets "github.io/infrasutra/orgmail/web"
)

const (
	uiMissing      = "UI not embedded. Rebuild with web/dist populated."
	multipartSlack = 1 << 20
	keepAlive      = 20 * time.Second
)

type Server struct {
	cfg      config.Config
	store    *store.Store
	hub      *sse.Hub
	picker   *imagepick.Picker
	logger   *slog.Logger
	router   chi.Router
	staticFS fs.FS
	staticOK bool
	stop     func()
	done     chan struct{}
	once     sync.Once
}

func NewServer(cfg config.Config, st *store.Store, hub *sse.Hub, picker *imagepick.Picker, logger *slog.Logger) *Server {
	logger = logger.With("component", "api")
	staticFS, err := webassets.Dist()
	staticOK := err == nil
	if err != nil {
		logger.Warn("ui assets not embedded", "error", err)
	}
	if picker == nil {
		picker = imagepick.New(cfg.MaxImageBytes)
	}

	server := &Server{
		cfg:      cfg,
		store:    st,
		hub:      hub,
		picker:   picker,
		logger:   logger,
		staticFS: staticFS,
		staticOK: staticOK,
		done:     make(chan struct{}),
	}
	server.stop = st.Subscribe(server.publish)
	server.updateCollectionSizes()

	router := chi.NewRouter()
	router.Use(RequestLogger(logger), MetricsMiddleware())

	router.Get("/health", server.handleHealth)
	router.Get("/ready", server.handleReady)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Post("/login", server.handleLogin)
		r.Post("/signup", server.handleSignup)
		r.Post("/logout", server.handleLogout)
		r.Get("/me", server.handleMe)

		r.Put("/profile", server.handleProfileUpdate)
		r.Delete("/profile", server.handleProfileDelete)

		r.Get("/mail/{box}", server.handleMailList)
		r.Post("/mail/{box}", server.handleMailAdd)
		r.Post("/mail/{box}/{id}/archive", server.handleMailArchive)

		r.Get("/dashboard", server.handleDashboard)
		r.Post("/archive/{id}/restore", server.handleRestore)

		r.Post("/images", server.handleImage)
		r.Get("/stream", server.handleStream)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		})
	})

	router.NotFound(server.serveStatic)
	server.router = router
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close detaches the server from store notifications and ends every open
// event stream. It is safe to call more than once.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
	})
}

func (s *Server) publish(change store.Change) {
	storeMutationsTotal.WithLabelValues(change.Op).Inc()
	s.updateCollectionSizes()

	payload, err := sse.Event("change", change)
	if err != nil {
		s.logger.Error("encode change event", "error", err)
		return
	}
	s.hub.Broadcast(payload)
}

func (s *Server) updateCollectionSizes() {
	snap := s.store.Snapshot()
	collectionSize.WithLabelValues(string(store.CollectionIncoming)).Set(float64(len(snap.Incoming)))
	collectionSize.WithLabelValues(string(store.CollectionOutgoing)).Set(float64(len(snap.Outgoing)))
	collectionSize.WithLabelValues(string(store.CollectionArchived)).Set(float64(len(snap.Archived)))
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.staticOK {
		s.respondText(w, http.StatusNotFound, uiMissing)
		return
	}

	cleaned := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if cleaned == "" {
		cleaned = "index.html"
	}
	if s.serveEmbeddedFile(w, r, cleaned) {
		return
	}
	if strings.HasPrefix(cleaned, "assets/") {
		http.NotFound(w, r)
		return
	}

	// Client routes of the navigation shell all load the same page.
	if _, ok := view.ParsePage(cleaned); ok {
		if s.serveEmbeddedFile(w, r, "index.html") {
			return
		}
		s.respondText(w, http.StatusNotFound, uiMissing)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) serveEmbeddedFile(w http.ResponseWriter, r *http.Request, name string) bool {
	file, err := s.staticFS.Open(name)
	if err != nil {
		return false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	if seeker, ok := file.(io.ReadSeeker); ok {
		http.ServeContent(w, r, info.Name(), info.ModTime(), seeker)
		return true
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), bytes.NewReader(data))
	return true
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	if err := rc.Flush(); err != nil {
		s.logger.Warn("stream flush unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(payload)
			_ = rc.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			_ = rc.Flush()
		}
	}
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// respondError maps store and image errors onto status codes.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *store.ValidationError
		tooBig     *http.MaxBytesError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.As(err, &validation):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: view.MsgRequiredFields, Fields: validation.Fields})
	case errors.As(err, &tooBig):
		s.respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
	case errors.Is(err, errInvalidJSON), errors.Is(err, errInvalidMultipart), errors.Is(err, http.ErrNotMultipart),
		errors.Is(err, imagepick.ErrEmptyImage), errors.Is(err, store.ErrInvalidMailType):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrRecordNotFound):
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotLoggedIn):
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, imagepick.ErrImageTooLarge):
		s.respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrClosed):
		s.respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondText(w http.ResponseWriter, status int, payload string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(payload))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondText(w, http.StatusOK, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.respondText(w, http.StatusOK, "ready")
}

// bodyLimit caps request bodies at one image plus room for the other fields.
func (s *Server) bodyLimit(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxImageBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxImageBytes)+multipartSlack)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return errInvalidJSON
	}
	return nil
}

var (
	errInvalidJSON      = errors.New("invalid JSON")
	errInvalidMultipart = errors.New("invalid multipart body")
)

// parseMultipart reads the form. Oversized bodies keep their
// *http.MaxBytesError; anything else is a malformed request.
func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(multipartSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return fmt.Errorf("%w: %v", errInvalidMultipart, err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
