package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"docanchor/internal/anchor"
	"docanchor/internal/store"
)

const (
	apiTokenEnvKey     = "DOCANCHOR_API_TOKEN"
	adminTokenEnvKey   = "DOCANCHOR_ADMIN_TOKEN"
	allowRemoteEnvKey  = "DOCANCHOR_ALLOW_REMOTE"
	readHeaderTimeout  = 5 * time.Second
	readTimeout        = 2 * time.Minute
	writeTimeout       = 2 * time.Minute
	idleTimeout        = 60 * time.Second
	shutdownTimeout    = 10 * time.Second
	ledgerWriteLimit   = 8
	reconcileLimit     = 1
	defaultUploadBytes = 50 << 20
	defaultUploadMem   = 8 << 20
)

// InfoStore supplies index statistics for the info endpoint.
type InfoStore interface {
	StoreInfo(ctx context.Context) (*store.StoreInfo, error)
}

// Options tunes uploads and reporting.
type Options struct {
	Network            string
	MaxUploadBytes     int64
	MultipartMaxMemory int64
	AllowedMediaTypes  []string
}

// Server wraps HTTP handlers for the docanchor API.
type Server struct {
	addr              string
	service           *anchor.Service
	store             InfoStore
	network           string
	maxUploadBytes    int64
	multipartMemory   int64
	allowedMediaTypes map[string]struct{}
	logger            *slog.Logger
	apiToken          string
	adminToken        string
	writeLimiter      chan struct{}
	reconcileLimiter  chan struct{}
}

// New creates a new server instance.
func New(addr string, service *anchor.Service, infoStore InfoStore, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultUploadBytes
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = defaultUploadMem
	}

	var allowed map[string]struct{}
	if len(opts.AllowedMediaTypes) > 0 {
		allowed = make(map[string]struct{}, len(opts.AllowedMediaTypes))
		for _, mediaType := range opts.AllowedMediaTypes {
			allowed[strings.ToLower(strings.TrimSpace(mediaType))] = struct{}{}
		}
	}

	return &Server{
		addr:              addr,
		service:           service,
		store:             infoStore,
		network:           opts.Network,
		maxUploadBytes:    opts.MaxUploadBytes,
		multipartMemory:   opts.MultipartMaxMemory,
		allowedMediaTypes: allowed,
		logger:            logger.With("component", "server"),
		apiToken:          strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken:        strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		writeLimiter:      make(chan struct{}, ledgerWriteLimit),
		reconcileLimiter:  make(chan struct{}, reconcileLimit),
	}
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withRequestLogging(s.withAuth(s.routes())))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
