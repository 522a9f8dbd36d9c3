package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/schema"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type proberFunc func(ctx context.Context, values map[string]any) error

func (f proberFunc) Probe(ctx context.Context, values map[string]any) error {
	return f(ctx, values)
}

func TestDispatcherMapsOutcomes(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), time.Second)

	d.WithProber(schema.KindTelephony, proberFunc(func(context.Context, map[string]any) error {
		return nil
	}))
	res := d.Probe(context.Background(), schema.KindTelephony, nil)
	require.Equal(t, StatusOK, res.Status)
	require.Empty(t, res.Message)
	require.False(t, res.CheckedAt.IsZero())

	d.WithProber(schema.KindTelephony, proberFunc(func(context.Context, map[string]any) error {
		return errors.New("connection refused")
	}))
	res = d.Probe(context.Background(), schema.KindTelephony, nil)
	require.Equal(t, StatusDown, res.Status)
	require.Contains(t, res.Message, "connection refused")

	d.WithProber(schema.KindTelephony, proberFunc(func(context.Context, map[string]any) error {
		return errors.Join(ErrCredentialRejected, errors.New("401"))
	}))
	res = d.Probe(context.Background(), schema.KindTelephony, nil)
	require.Equal(t, StatusDown, res.Status)
	require.Contains(t, res.Message, "credential-rejected")

	d.WithProber(schema.KindTelephony, proberFunc(func(context.Context, map[string]any) error {
		return ErrDegraded
	}))
	res = d.Probe(context.Background(), schema.KindTelephony, nil)
	require.Equal(t, StatusDegraded, res.Status)
}

func TestDispatcherTimeout(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 50*time.Millisecond)
	d.WithProber(schema.KindTelephony, proberFunc(func(ctx context.Context, _ map[string]any) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	res := d.Probe(context.Background(), schema.KindTelephony, nil)
	require.Equal(t, StatusDown, res.Status)
	require.Equal(t, "probe timed out", res.Message)
	require.Less(t, time.Since(start), time.Second)
}

func TestTelephonyProber(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if !strings.HasPrefix(gotAuth, "Basic ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "/adminapi/system", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)
	values := map[string]any{
		"host":     host,
		"port":     port,
		"username": "svc",
		"password": "secret1",
		"use_tls":  false,
	}

	err := TelephonyProber{}.Probe(context.Background(), values)
	require.NoError(t, err)
	require.NotEmpty(t, gotAuth)
}

func TestTelephonyProberCredentialRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)
	err := TelephonyProber{}.Probe(context.Background(), map[string]any{
		"host": host, "port": port, "username": "svc", "password": "wrong", "use_tls": false,
	})
	require.ErrorIs(t, err, ErrCredentialRejected)
	require.NotContains(t, err.Error(), "wrong")
}

func TestMediaRecordingProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "/api/v1/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := MediaRecordingProber{}.Probe(context.Background(), map[string]any{
		"api_url": srv.URL, "api_token": "tok", "verify_tls": true,
	})
	require.NoError(t, err)

	err = MediaRecordingProber{}.Probe(context.Background(), map[string]any{
		"api_url": srv.URL, "api_token": "bad-tok", "verify_tls": true,
	})
	require.ErrorIs(t, err, ErrCredentialRejected)
}

func TestSearchIndexProber(t *testing.T) {
	status := "green"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	}))
	defer srv.Close()

	values := map[string]any{"address": srv.URL}

	require.NoError(t, SearchIndexProber{}.Probe(context.Background(), values))

	status = "yellow"
	err := SearchIndexProber{}.Probe(context.Background(), values)
	require.ErrorIs(t, err, ErrDegraded)

	status = "red"
	err = SearchIndexProber{}.Probe(context.Background(), values)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDegraded)
}

func TestProbersRequireEndpoint(t *testing.T) {
	require.Error(t, TelephonyProber{}.Probe(context.Background(), map[string]any{}))
	require.Error(t, MediaRecordingProber{}.Probe(context.Background(), map[string]any{}))
	require.Error(t, SearchIndexProber{}.Probe(context.Background(), map[string]any{}))
	require.Error(t, EmailProber{}.Probe(context.Background(), map[string]any{}))
	require.Error(t, IdentityProber{}.Probe(context.Background(), map[string]any{}))
}

func splitHostPort(t *testing.T, url string) (string, int) {
	t.Helper()
	trimmed := strings.TrimPrefix(url, "http://")
	host, portStr, found := strings.Cut(trimmed, ":")
	require.True(t, found)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}
