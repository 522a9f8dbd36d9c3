package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	papi "github.com/DmitryPogrebniuk/qms-sub001/pkg/api"
	"github.com/DmitryPogrebniuk/qms-sub001/pkg/httpserver"
	"github.com/DmitryPogrebniuk/qms-sub001/pkg/vault"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/api/entity"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/probe"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/repository"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/schema"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gopkg.in/go-playground/validator.v9"
)

type staticVerifier map[string]*papi.Claims

func (v staticVerifier) Verify(_ context.Context, rawToken string) (*papi.Claims, error) {
	claims, ok := v[rawToken]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

type testValidator struct {
	validate *validator.Validate
}

func (v testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type HttpHandlerSuite struct {
	suite.Suite

	router     *echo.Echo
	store      *service.Store
	dispatcher *probe.Dispatcher
}

func (s *HttpHandlerSuite) SetupTest() {
	require := s.Require()

	key, err := vault.GenerateKey()
	require.NoError(err)
	codec, err := vault.NewAESCodec("v1", key)
	require.NoError(err)

	s.store = service.NewStore(repository.NewIntegrationInMemory(), codec, zap.NewNop())
	s.dispatcher = probe.NewDispatcher(zap.NewNop(), time.Second)

	verifier := staticVerifier{
		"admin-token": {Subject: "u-1", PreferredUsername: "admin1", Roles: []string{"ADMIN"}},
		"user-token":  {Subject: "u-2", PreferredUsername: "agent7", Roles: []string{"USER"}},
		"empty-token": {Subject: "u-3", PreferredUsername: "ghost"},
	}

	s.router = echo.New()
	s.router.Validator = testValidator{validate: validator.New()}

	handler := New(s.store, s.dispatcher, zap.NewNop())
	handler.Register(s.router.Group("/api/v1/integrations", httpserver.Authentication(verifier)))
}

func (s *HttpHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func telephonyRequest(version int64) entity.UpdateIntegrationRequest {
	return entity.UpdateIntegrationRequest{
		Values: map[string]any{
			"host":     "uccx.example.com",
			"port":     8080,
			"username": "svc",
			"password": "secret1",
		},
		Enabled: true,
		Version: version,
	}
}

func (s *HttpHandlerSuite) TestMissingToken() {
	rec := s.do(http.MethodGet, "/api/v1/integrations/telephony", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HttpHandlerSuite) TestNonAdminForbidden() {
	rec := s.do(http.MethodGet, "/api/v1/integrations/telephony", "user-token", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/integrations/telephony", "user-token", telephonyRequest(0))
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HttpHandlerSuite) TestEmptyRolesFailClosed() {
	rec := s.do(http.MethodGet, "/api/v1/integrations/telephony", "empty-token", nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HttpHandlerSuite) TestGetUnconfigured() {
	rec := s.do(http.MethodGet, "/api/v1/integrations/telephony", "admin-token", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HttpHandlerSuite) TestUnknownKind() {
	rec := s.do(http.MethodGet, "/api/v1/integrations/fax", "admin-token", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HttpHandlerSuite) TestWriteThenRead() {
	rec := s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", telephonyRequest(0))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var updated entity.Integration
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal(int64(1), updated.Version)
	s.Equal(schema.MaskedSecret, updated.Values["password"])
	s.Equal("admin1", updated.UpdatedBy)

	rec = s.do(http.MethodGet, "/api/v1/integrations/telephony", "admin-token", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var got entity.Integration
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal("uccx.example.com", got.Values["host"])
	s.Equal(float64(8080), got.Values["port"])
	s.Equal(schema.MaskedSecret, got.Values["password"])
	s.True(got.Enabled)
	s.Equal(int64(1), got.Version)
}

func (s *HttpHandlerSuite) TestStaleVersionConflict() {
	rec := s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", telephonyRequest(0))
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", telephonyRequest(0))
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HttpHandlerSuite) TestValidationFailure() {
	req := entity.UpdateIntegrationRequest{
		Values:  map[string]any{"host": "uccx.example.com", "bogus": true},
		Enabled: true,
	}
	rec := s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", req)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "bogus")
}

func (s *HttpHandlerSuite) TestForceOverwrite() {
	rec := s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", telephonyRequest(0))
	s.Require().Equal(http.StatusOK, rec.Code)

	req := telephonyRequest(0)
	req.Force = true
	req.Values["host"] = "uccx2.example.com"
	rec = s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var got entity.Integration
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal(int64(2), got.Version)
	s.Equal("uccx2.example.com", got.Values["host"])
}

func (s *HttpHandlerSuite) TestList() {
	rec := s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", telephonyRequest(0))
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/integrations", "admin-token", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var items []entity.IntegrationListItem
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &items))
	s.Len(items, len(schema.AllKinds))
	for i, kind := range schema.AllKinds {
		s.Equal(kind.String(), items[i].Kind)
	}

	var telephony *entity.IntegrationListItem
	for i := range items {
		if items[i].Kind == "telephony" {
			telephony = &items[i]
		}
	}
	s.Require().NotNil(telephony)
	s.True(telephony.Configured)
	s.True(telephony.Enabled)
	s.Equal(schema.MaskedSecret, telephony.Integration.Values["password"])
}

func (s *HttpHandlerSuite) TestListKinds() {
	rec := s.do(http.MethodGet, "/api/v1/integrations/kinds", "admin-token", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var specs []entity.KindSpec
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &specs))
	s.Len(specs, len(schema.AllKinds))
}

type okProber struct{}

func (okProber) Probe(context.Context, map[string]any) error { return nil }

func (s *HttpHandlerSuite) TestHealthcheckEndpoint() {
	rec := s.do(http.MethodPut, "/api/v1/integrations/telephony", "admin-token", telephonyRequest(0))
	s.Require().Equal(http.StatusOK, rec.Code)

	s.dispatcher.WithProber(schema.KindTelephony, okProber{})

	rec = s.do(http.MethodPost, "/api/v1/integrations/telephony/healthcheck", "admin-token", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var result probe.Result
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	s.Equal(probe.StatusOK, result.Status)
	s.Equal(schema.KindTelephony, result.Kind)
}

func (s *HttpHandlerSuite) TestHealthcheckUnconfigured() {
	rec := s.do(http.MethodPost, "/api/v1/integrations/email/healthcheck", "admin-token", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func TestHttpHandlerSuite(t *testing.T) {
	suite.Run(t, new(HttpHandlerSuite))
}
