// Package transport expõe os comandos por HTTP: um servidor gorilla/mux para
// o runtime local e um adaptador para o API Gateway (HTTP API) no Lambda.
// Ambos compartilham as rotas, a tradução de erros e as métricas.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/pkg/apperr"
	"github.com/raywall/form-builder-service/pkg/authz"
	"github.com/raywall/form-builder-service/pkg/handler"
	"github.com/raywall/form-builder-service/pkg/logger"
	"github.com/raywall/form-builder-service/pkg/metrics"
)

const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderLatency       = "x-latency-ms"

	// Identidade do chamador no runtime local, onde não há autorizador.
	HeaderUserID    = "x-user-id"
	HeaderUserEmail = "x-user-email"
)

const maxBodyBytes = 1 << 20

const (
	msgRouteNotFound    = "route not found"
	msgMethodNotAllowed = "method not allowed"
)

// CallerFunc extrai a identidade já verificada do chamador.
type CallerFunc func(r *http.Request) authz.Caller

// HeaderCaller lê o chamador dos cabeçalhos x-user-id e x-user-email.
func HeaderCaller(r *http.Request) authz.Caller {
	return authz.Caller{
		UserID: r.Header.Get(HeaderUserID),
		Email:  r.Header.Get(HeaderUserEmail),
	}
}

type Server struct {
	router  *mux.Router
	routes  map[string]Route
	logger  zerolog.Logger
	metrics *metrics.Processor
	caller  CallerFunc
	newID   func() string
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(p *metrics.Processor) Option {
	return func(s *Server) { s.metrics = p }
}

func WithCaller(fn CallerFunc) Option {
	return func(s *Server) { s.caller = fn }
}

func NewServer(h *handler.Handler, opts ...Option) *Server {
	s := &Server{
		routes: make(map[string]Route),
		logger: log.Logger,
		caller: HeaderCaller,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = mux.NewRouter()
	for _, rt := range Routes(h) {
		s.routes[rt.Name] = rt
		s.router.HandleFunc(rt.Path, s.serve(rt)).Methods(rt.Method).Name(rt.Name)
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusNotFound, handler.Message{Message: msgRouteNotFound})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusMethodNotAllowed, handler.Message{Message: msgMethodNotAllowed})
	})
	return s
}

// Handler devolve o roteador envolvido pelo middleware de observabilidade.
func (s *Server) Handler() http.Handler {
	return s.observe(s.router)
}

// ListenAndServe atende na porta até o contexto ser cancelado.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Msgf("Servidor HTTP ouvindo em %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) serve(rt Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(r.Context(), w, http.StatusBadRequest, handler.Message{Message: "invalid request body"})
			return
		}
		status, out := s.invoke(r.Context(), rt, mux.Vars(r), s.caller(r), body)
		writeJSON(r.Context(), w, status, out)
	}
}

// invoke executa o comando e traduz o erro para status e corpo públicos.
func (s *Server) invoke(ctx context.Context, rt Route, params map[string]string, caller authz.Caller, body []byte) (int, any) {
	start := time.Now()
	out, err := rt.Handle(ctx, handler.Request{Caller: caller, Params: params, Body: body})

	status := http.StatusOK
	if err != nil {
		status = apperr.Status(err)
		out = handler.Message{Message: apperr.PublicMessage(err)}

		ev := log.Ctx(ctx).Warn()
		if status >= http.StatusInternalServerError {
			ev = log.Ctx(ctx).Error()
		}
		ev.Err(err).Str("route", rt.Name).Int("status", status).Msg("comando recusado")
	}

	tags := map[string]string{"route": rt.Name, "status": strconv.Itoa(status)}
	_ = s.metrics.Record(metrics.HTTPRequest, 1, tags)
	_ = s.metrics.Record(metrics.HTTPLatency, float64(time.Since(start).Milliseconds()), tags)
	return status, out
}

func corsHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderCorrelationID)
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("erro ao serializar resposta")
	}
}

// --- MIDDLEWARE DE OBSERVABILIDADE ---

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	startTime   time.Time
	wroteHeader bool
}

func (rw *responseWriterWrapper) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.Header().Set(HeaderLatency, strconv.FormatInt(time.Since(rw.startTime).Milliseconds(), 10))
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

func (rw *responseWriterWrapper) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// observe injeta correlation id, CORS e o log de acesso. Preflights são
// respondidos aqui mesmo.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		corrID := r.Header.Get(HeaderCorrelationID)
		if corrID == "" {
			corrID = s.newID()
		}
		w.Header().Set(HeaderCorrelationID, corrID)
		corsHeaders(w.Header())

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		ctx, reqLogger := logger.WithCorrelationID(r.Context(), s.logger, corrID)
		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			startTime:      start,
		}

		next.ServeHTTP(wrapper, r.WithContext(ctx))

		reqLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("request completed")
	})
}
