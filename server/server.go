// Package server exposes the read-only status surface over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/metrics"
	"github.com/argoclaw/Clawtter-Argo/ai/mood"
	"github.com/argoclaw/Clawtter-Argo/internal/version"
	"github.com/argoclaw/Clawtter-Argo/server/service/schedule"
	"github.com/argoclaw/Clawtter-Argo/store"
)

// FeedRenderer renders the Atom feed.
type FeedRenderer interface {
	Atom() (string, error)
}

// Server serves health, schedule, mood, today's artifacts, the feed and
// metrics. Every response is read from the state files at request time.
type Server struct {
	Records *schedule.RecordStore
	Lock    *schedule.Lock
	Mood    *mood.FileStore
	Store   *store.Store
	Feed    FeedRenderer
	Metrics *metrics.PrometheusExporter
	Now     func() time.Time

	echo *echo.Echo
}

// NewServer builds the echo instance and registers routes.
func NewServer(s *Server) *Server {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Metrics == nil {
		s.Metrics = metrics.NewPrometheusExporter(metrics.DefaultConfig())
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
			return next(c)
		}
	})

	e.GET("/healthz", s.health)
	api := e.Group("/api/v1")
	api.GET("/schedule", s.schedule)
	api.GET("/mood", s.mood)
	api.GET("/artifacts/today", s.today)
	e.GET("/feed.atom", s.feed)
	e.GET("/metrics", s.metrics)

	s.echo = e
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server: listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down server")
	}
	return <-errCh
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

type scheduleResponse struct {
	NextRun      string          `json:"next_run,omitempty"`
	DelayMinutes int             `json:"delay_minutes"`
	Status       schedule.Status `json:"status"`
	Due          bool            `json:"due"`
	Locked       bool            `json:"locked"`
	LockHolder   int             `json:"lock_holder_pid,omitempty"`
}

func (s *Server) schedule(c echo.Context) error {
	rec, err := s.Records.Load()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no schedule record yet")
	}

	resp := scheduleResponse{
		NextRun:      rec.NextRun.Format(schedule.RecordTimeLayout),
		DelayMinutes: rec.DelayMinutes,
		Status:       rec.Status,
		Due:          rec.Due(s.Now()),
	}
	if s.Lock != nil {
		if info, ok := s.Lock.Info(); ok {
			if stale, err := s.Lock.Stale(); err == nil && !stale {
				resp.Locked = true
				resp.LockHolder = info.HolderPID
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type moodResponse struct {
	mood.Vector
	Persisted      bool    `json:"persisted"`
	ActProbability float64 `json:"act_probability"`
}

func (s *Server) mood(c echo.Context) error {
	v, found, err := s.Mood.Load()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, moodResponse{
		Vector:         v,
		Persisted:      found,
		ActProbability: mood.ActProbability(v, s.Now().In(s.Store.Location()).Hour()),
	})
}

type artifactResponse struct {
	Time        string   `json:"time"`
	Tags        []string `json:"tags"`
	Mood        string   `json:"mood"`
	Model       string   `json:"model"`
	OriginalURL string   `json:"original_url,omitempty"`
	Path        string   `json:"path"`
	Body        string   `json:"body"`
}

// today reads the day directory on every request since the scheduler
// publishes through its own Store.
func (s *Server) today(c echo.Context) error {
	list, err := s.Store.Day(s.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]artifactResponse, 0, len(list))
	for _, a := range list {
		rel, err := filepath.Rel(s.Store.Root(), a.Path)
		if err != nil {
			rel = filepath.Base(a.Path)
		}
		out = append(out, artifactResponse{
			Time:        a.Time.Format(store.TimeLayout),
			Tags:        a.Tags,
			Mood:        a.Mood,
			Model:       a.Model,
			OriginalURL: a.OriginalURL,
			Path:        filepath.ToSlash(rel),
			Body:        strings.TrimSpace(a.Body),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) feed(c echo.Context) error {
	if s.Feed == nil {
		return echo.NewHTTPError(http.StatusNotFound, "feed not configured")
	}
	atom, err := s.Feed.Atom()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(atom))
}

// metrics refreshes the mood gauges from disk before serving the registry.
func (s *Server) metrics(c echo.Context) error {
	if v, found, err := s.Mood.Load(); err == nil && found {
		s.Metrics.SetMood(v)
	}
	s.Metrics.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
