package api

import (
	"net/http"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/pkg/httpserver"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/api/integrations"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/healthz"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/probe"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type API struct {
	logger     *zap.Logger
	store      *service.Store
	dispatcher *probe.Dispatcher
	checker    *healthz.Checker
	verifier   httpserver.TokenVerifier
}

func New(
	logger *zap.Logger,
	store *service.Store,
	dispatcher *probe.Dispatcher,
	checker *healthz.Checker,
	verifier httpserver.TokenVerifier,
) *API {
	return &API{
		logger:     logger.Named("api"),
		store:      store,
		dispatcher: dispatcher,
		checker:    checker,
		verifier:   verifier,
	}
}

func (api *API) Register(e *echo.Echo) {
	// health endpoints serve orchestration probes: unauthenticated
	e.GET("/health/live", api.liveness)
	e.GET("/health/ready", api.readiness)
	e.GET("/health", api.report)

	v1 := e.Group("/api/v1", httpserver.Authentication(api.verifier))

	integrationsApi := integrations.New(api.store, api.dispatcher, api.logger)
	integrationsApi.Register(v1.Group("/integrations"))
}

func (api *API) liveness(c echo.Context) error {
	status, ts := api.checker.Liveness()
	return c.JSON(http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": ts.Format(time.RFC3339),
	})
}

func (api *API) readiness(c echo.Context) error {
	status, ts := api.checker.Readiness(c.Request().Context())
	code := http.StatusOK
	if status != healthz.StatusOK {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{
		"status":    status,
		"timestamp": ts.Format(time.RFC3339),
	})
}

func (api *API) report(c echo.Context) error {
	report := api.checker.Report(c.Request().Context())
	code := http.StatusOK
	if report.Status == healthz.StatusNotReady {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, report)
}
