// Package httpapi serves the persisted catalog over a read-only JSON API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/bundlefeed/internal/catalog"
	"horse.fit/bundlefeed/internal/globaltime"
	"horse.fit/bundlefeed/internal/store"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server reads the catalog file on every request; the batch run replaces it wholesale.
type Server struct {
	catalogPath string
	logger      zerolog.Logger
	opts        Options
}

type itemListFilter struct {
	Bundle   string
	Query    string
	Since    int64
	Page     int
	PageSize int
}

type itemListResponse struct {
	Items      []catalog.Item `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

func NewServer(catalogPath string, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Port <= 0 {
		opts.Port = 8090
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{catalogPath: catalogPath, logger: logger, opts: opts}
}

// Handler builds the echo instance with middleware and routes.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil || v.Status >= 500 {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/meta", s.handleMeta)
	api.GET("/bundles", s.handleBundles)
	api.GET("/items", s.handleItems)
	api.GET("/items/:id", s.handleItemDetail)

	return e
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Str("catalog_path", s.catalogPath).Msg("catalog api started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("catalog api stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) loadCatalog() (catalog.Catalog, error) {
	snap, err := store.Load(s.catalogPath)
	if err != nil {
		return catalog.Catalog{}, err
	}
	return snap.Catalog, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "bundlefeed",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleMeta(c echo.Context) error {
	cat, err := s.loadCatalog()
	if err != nil {
		s.logger.Error().Err(err).Msg("load catalog failed")
		return internalError(c, "Failed to load catalog")
	}
	return success(c, cat.Meta)
}

func (s *Server) handleBundles(c echo.Context) error {
	cat, err := s.loadCatalog()
	if err != nil {
		s.logger.Error().Err(err).Msg("load catalog failed")
		return internalError(c, "Failed to load catalog")
	}
	return success(c, map[string]any{
		"items": catalog.CountByBundle(cat.Items),
	})
}

func (s *Server) handleItems(c echo.Context) error {
	filter, fieldErrors := parseItemListFilter(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	cat, err := s.loadCatalog()
	if err != nil {
		s.logger.Error().Err(err).Msg("load catalog failed")
		return internalError(c, "Failed to load catalog")
	}

	matched := filterItems(cat.Items, filter)
	total := len(matched)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)

	totalPages := 0
	if total > 0 {
		totalPages = (total + filter.PageSize - 1) / filter.PageSize
	}
	return success(c, itemListResponse{
		Items:      matched[start:end],
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

func (s *Server) handleItemDetail(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return failValidation(c, map[string]string{"id": "is required"})
	}

	cat, err := s.loadCatalog()
	if err != nil {
		s.logger.Error().Err(err).Msg("load catalog failed")
		return internalError(c, "Failed to load catalog")
	}
	for _, it := range cat.Items {
		if it.ID == id {
			return success(c, it)
		}
	}
	return failNotFound(c, "Item not found")
}

func parseItemListFilter(c echo.Context) (itemListFilter, map[string]string) {
	fieldErrors := make(map[string]string)
	filter := itemListFilter{
		Bundle: strings.TrimSpace(c.QueryParam("bundle")),
		Query:  strings.ToLower(strings.TrimSpace(c.QueryParam("q"))),
	}

	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		fieldErrors["page"] = err.Error()
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		fieldErrors["page_size"] = err.Error()
	}
	since, err := parseTimeFilter(c.QueryParam("since"))
	if err != nil {
		fieldErrors["since"] = err.Error()
	}

	filter.Page = page
	filter.PageSize = pageSize
	filter.Since = since
	return filter, fieldErrors
}

func filterItems(items []catalog.Item, filter itemListFilter) []catalog.Item {
	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if filter.Bundle != "" && !strings.EqualFold(it.Bundle, filter.Bundle) {
			continue
		}
		if filter.Since > 0 && it.PublishedTS < filter.Since {
			continue
		}
		if filter.Query != "" &&
			!strings.Contains(strings.ToLower(it.Title), filter.Query) &&
			!strings.Contains(strings.ToLower(it.Source), filter.Query) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

// parseTimeFilter accepts RFC3339 or a bare YYYY-MM-DD date and returns epoch seconds.
func parseTimeFilter(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts.Unix(), nil
	}
	if day, err := time.Parse("2006-01-02", trimmed); err == nil {
		return day.Unix(), nil
	}
	return 0, fmt.Errorf("invalid time format")
}
