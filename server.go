package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"textdeck/config"
)

const (
	pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	welcomeMessage  = "Welcome to the PowerPoint Generator API! This endpoint is working."

	headerSlideCount  = "X-Slide-Count"
	headerContentTier = "X-Content-Tier"
	headerRequestID   = "X-Request-ID"

	// multipart parts above this size spill to disk
	formMemoryLimit = 8 << 20
)

var requiredFormFields = []string{"text_content", "llm_provider", "api_key", "filename"}

// Server exposes the generation pipeline over HTTP.
type Server struct {
	app    *App
	cfg    config.ServerConfig
	addr   string
	logger *zap.Logger

	httpServer *http.Server
	listener   net.Listener
	done       chan error
}

// NewServer creates the HTTP service. addr overrides the configured host:port
// when non-empty.
func NewServer(app *App, addr string) *Server {
	if addr == "" {
		addr = app.cfg.Addr()
	}
	return &Server{
		app:    app,
		cfg:    app.cfg.Server,
		addr:   addr,
		logger: app.zlog().Named("http"),
		done:   make(chan error, 1),
	}
}

func (s *Server) Name() string { return "http-server" }

// Initialize binds the listener and starts serving in the background.
func (s *Server) Initialize(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.done <- err
		}
		close(s.done)
	}()

	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown drains in-flight requests for up to the configured grace period.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	grace := time.Duration(s.cfg.ShutdownGraceS) * time.Second
	if grace <= 0 {
		grace = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return WrapError("Server", "Shutdown", err)
	}
	return nil
}

// Addr is the bound address, valid after Initialize.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Done is closed when the serve loop exits. It yields the error if serving
// failed for a reason other than Shutdown.
func (s *Server) Done() <-chan error {
	return s.done
}

// Handler returns the routed handler with CORS and panic recovery applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/generate-ppt", s.handleGenerate).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", headerSlideCount, headerContentTier, headerRequestID},
		AllowCredentials: true,
	})
	return c.Handler(s.recoverer(router))
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				writeDetail(w, http.StatusInternalServerError, "An error occurred: internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

// handleGenerate serves POST /generate-ppt.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))
	w.Header().Set(headerRequestID, requestID)

	if s.cfg.MaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	}
	if err := r.ParseMultipartForm(formMemoryLimit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d MB", s.cfg.MaxUploadMB))
			return
		}
		log.Warn("malformed form", zap.Error(err))
		writeDetail(w, http.StatusBadRequest, "malformed form data: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	// body fields only; query parameters never satisfy a required field
	for _, field := range requiredFormFields {
		if _, ok := r.PostForm[field]; !ok {
			writeDetail(w, http.StatusUnprocessableEntity, "field required: "+field)
			return
		}
	}

	req := GenerateRequest{
		Text:     r.PostFormValue("text_content"),
		Guidance: r.PostFormValue("guidance"),
		Provider: r.PostFormValue("llm_provider"),
		APIKey:   r.PostFormValue("api_key"),
		Filename: r.PostFormValue("filename"),
	}

	file, header, err := r.FormFile("template_file")
	switch {
	case err == nil:
		defer file.Close()
		if header.Filename != "" && header.Size > 0 {
			req.Template = file
			req.TemplateName = header.Filename
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		log.Warn("unreadable template upload", zap.Error(err))
		writeDetail(w, http.StatusBadRequest, "invalid template_file: "+err.Error())
		return
	}

	result, err := s.app.GeneratePresentation(r.Context(), req)
	if err != nil {
		if isClientError(err) {
			log.Warn("generation rejected", zap.Error(err))
		} else {
			log.Error("generation failed", zap.Error(err))
		}
		writeDetail(w, http.StatusInternalServerError, "An error occurred: "+PublicMessage(err))
		return
	}
	defer func() {
		if err := result.Release(); err != nil {
			log.Warn("failed to release workspace", zap.Error(err))
		}
	}()

	if err := s.sendFile(w, r, result); err != nil {
		log.Error("failed to send presentation", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "An error occurred: "+err.Error())
		return
	}
	log.Info("presentation sent",
		zap.String("file", result.Filename),
		zap.Int("slides", result.SlideCount),
		zap.String("tier", string(result.Tier)))
}

func (s *Server) sendFile(w http.ResponseWriter, r *http.Request, result *GenerateResult) error {
	f, err := os.Open(result.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Type", pptxContentType)
	h.Set("Content-Disposition", contentDisposition(result.Filename))
	h.Set(headerSlideCount, strconv.Itoa(result.SlideCount))
	h.Set(headerContentTier, string(result.Tier))
	http.ServeContent(w, r, result.Filename, info.ModTime(), f)
	return nil
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")

func contentDisposition(filename string) string {
	return `attachment; filename="` + dispositionEscaper.Replace(filename) + `"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
