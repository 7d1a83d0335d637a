package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"spendlog/internal/charts"
	"spendlog/internal/core"
	"spendlog/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.getDashboard(r.Context())
	if err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Dashboard aggregation failed", err, log.OpRead, nil)
		InternalServerError(err.Error()).Write(w)
		return
	}
	OK(d).Write(w)
}

// handleDashboardChart renders ?kind=monthly|category as a PNG.
func (s *Server) handleDashboardChart(w http.ResponseWriter, r *http.Request) {
	kind, err := charts.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	key := chartKeyPrefix + string(kind)
	img, found := s.chartCache.Get(key)
	if !found {
		d, err := s.getDashboard(r.Context())
		if err != nil {
			log.FromContext(r.Context()).LogError(r.Context(), "Dashboard aggregation failed", err, log.OpRender, nil)
			InternalServerError(err.Error()).Write(w)
			return
		}
		img, err = charts.Render(kind, d)
		if errors.Is(err, charts.ErrNoData) {
			NotFoundError(err.Error()).Write(w)
			return
		}
		if err != nil {
			log.FromContext(r.Context()).LogError(r.Context(), "Chart rendering failed", err, log.OpRender, nil)
			InternalServerError(err.Error()).Write(w)
			return
		}
		s.chartCache.Set(key, img)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) getDashboard(ctx context.Context) (core.Dashboard, error) {
	if d, found := s.dashboardCache.Get(dashboardKey); found {
		log.FromContext(ctx).DebugContext(ctx, "Dashboard cache hit")
		return d, nil
	}
	d, err := s.dashboard.Dashboard(ctx)
	if err != nil {
		return core.Dashboard{}, err
	}
	s.dashboardCache.Set(dashboardKey, d)
	return d, nil
}
