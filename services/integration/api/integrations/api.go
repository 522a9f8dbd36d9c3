package integrations

import (
	"errors"
	"net/http"

	"github.com/DmitryPogrebniuk/qms-sub001/pkg/api"
	"github.com/DmitryPogrebniuk/qms-sub001/pkg/httpserver"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/api/entity"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/probe"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/repository"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/schema"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type API struct {
	logger     *zap.Logger
	store      *service.Store
	dispatcher *probe.Dispatcher
}

func New(store *service.Store, dispatcher *probe.Dispatcher, logger *zap.Logger) API {
	return API{
		logger:     logger.Named("integrations"),
		store:      store,
		dispatcher: dispatcher,
	}
}

func (h API) Register(g *echo.Group) {
	g.GET("", httpserver.AuthorizeHandler(h.List, api.AdminRole))
	g.GET("/kinds", httpserver.AuthorizeHandler(h.ListKinds, api.AdminRole))
	g.GET("/:kind", httpserver.AuthorizeHandler(h.Get, api.AdminRole))
	g.PUT("/:kind", httpserver.AuthorizeHandler(h.Update, api.AdminRole))
	g.POST("/:kind/healthcheck", httpserver.AuthorizeHandler(h.Healthcheck, api.AdminRole))
}

// List godoc
//
//	@Summary		List integrations
//	@Description	Every registered integration kind with its masked configuration, if any
//	@Security		BearerToken
//	@Tags			integrations
//	@Produce		json
//	@Success		200	{array}	entity.IntegrationListItem
//	@Router			/api/v1/integrations [get]
func (h API) List(c echo.Context) error {
	configs, err := h.store.List(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list integrations", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list integrations")
	}

	byKind := make(map[schema.Kind]*service.Config, len(configs))
	for i := range configs {
		byKind[configs[i].Kind] = &configs[i]
	}

	items := make([]entity.IntegrationListItem, 0, len(schema.AllKinds))
	for _, kind := range schema.AllKinds {
		item := entity.IntegrationListItem{Kind: kind.String()}
		if cfg, ok := byKind[kind]; ok {
			item.Configured = true
			item.Enabled = cfg.Enabled
			item.Integration = toEntity(cfg)
		}
		items = append(items, item)
	}

	return c.JSON(http.StatusOK, items)
}

// ListKinds godoc
//
//	@Summary	Registered integration kinds and their field specs
//	@Security	BearerToken
//	@Tags		integrations
//	@Produce	json
//	@Success	200	{array}	entity.KindSpec
//	@Router		/api/v1/integrations/kinds [get]
func (h API) ListKinds(c echo.Context) error {
	specs := make([]entity.KindSpec, 0, len(schema.AllKinds))
	for _, kind := range schema.AllKinds {
		s, err := schema.For(kind)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		specs = append(specs, entity.KindSpec{Kind: kind.String(), Fields: s.Fields})
	}
	return c.JSON(http.StatusOK, specs)
}

// Get godoc
//
//	@Summary	Get one integration's masked configuration
//	@Security	BearerToken
//	@Tags		integrations
//	@Produce	json
//	@Param		kind	path		string	true	"Integration kind"
//	@Success	200		{object}	entity.Integration
//	@Router		/api/v1/integrations/{kind} [get]
func (h API) Get(c echo.Context) error {
	kind := schema.ParseKind(c.Param("kind"))
	if kind == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid integration kind")
	}

	cfg, err := h.store.Get(c.Request().Context(), kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "integration not configured")
		}
		h.logger.Error("failed to get integration", zap.String("kind", kind.String()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get integration")
	}

	return c.JSON(http.StatusOK, toEntity(cfg))
}

// Update godoc
//
//	@Summary		Update an integration's configuration
//	@Description	Body must be schema-shaped; masked secret values mean "unchanged"
//	@Security		BearerToken
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string								true	"Integration kind"
//	@Param			request	body		entity.UpdateIntegrationRequest	true	"Request"
//	@Success		200		{object}	entity.Integration
//	@Failure		400		{object}	echo.HTTPError
//	@Failure		409		{object}	echo.HTTPError
//	@Router			/api/v1/integrations/{kind} [put]
func (h API) Update(c echo.Context) error {
	kind := schema.ParseKind(c.Param("kind"))
	if kind == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid integration kind")
	}

	var req entity.UpdateIntegrationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	actor := httpserver.GetUser(c)

	var cfg *service.Config
	var err error
	if req.Force {
		cfg, err = h.store.ForcePut(ctx, kind, req.Values, req.Enabled, actor)
	} else {
		cfg, err = h.store.Put(ctx, kind, req.Values, req.Enabled, req.Version, actor)
	}
	if err != nil {
		var verr *schema.ValidationError
		switch {
		case errors.As(err, &verr):
			return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
		case errors.Is(err, repository.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "stale version, re-read and retry")
		default:
			h.logger.Error("failed to update integration", zap.String("kind", kind.String()), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to update integration")
		}
	}

	return c.JSON(http.StatusOK, toEntity(cfg))
}

// Healthcheck godoc
//
//	@Summary	Probe one integration's connectivity on demand
//	@Security	BearerToken
//	@Tags		integrations
//	@Produce	json
//	@Param		kind	path		string	true	"Integration kind"
//	@Success	200		{object}	probe.Result
//	@Router		/api/v1/integrations/{kind}/healthcheck [post]
func (h API) Healthcheck(c echo.Context) error {
	kind := schema.ParseKind(c.Param("kind"))
	if kind == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid integration kind")
	}

	cfg, err := h.store.GetRevealed(c.Request().Context(), kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "integration not configured")
		}
		h.logger.Error("failed to load integration", zap.String("kind", kind.String()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load integration")
	}

	result := h.dispatcher.Probe(c.Request().Context(), kind, cfg.Values)
	return c.JSON(http.StatusOK, result)
}

func toEntity(cfg *service.Config) *entity.Integration {
	return &entity.Integration{
		Kind:      cfg.Kind.String(),
		Values:    cfg.Values,
		Enabled:   cfg.Enabled,
		Version:   cfg.Version,
		UpdatedAt: cfg.UpdatedAt,
		UpdatedBy: cfg.UpdatedBy,
	}
}
