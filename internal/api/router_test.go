package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheetahbyte/licensor/internal/handlers"
	"github.com/cheetahbyte/licensor/internal/license"
	"github.com/cheetahbyte/licensor/internal/licensecrypto"
	"github.com/cheetahbyte/licensor/internal/metrics"
	"github.com/cheetahbyte/licensor/internal/services"
	"github.com/cheetahbyte/licensor/internal/store/memstore"
)

const adminKey = "let-me-in"

var fastParams = &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type brokenStore struct{ license.Store }

func (brokenStore) Lookup(context.Context, string) (license.License, error) {
	return license.License{}, errors.New("dial tcp 10.0.0.5:27017: connection refused")
}

func (brokenStore) Insert(context.Context, license.NewLicense) (license.License, error) {
	return license.License{}, errors.New("E11000 duplicate key error collection: licenses")
}

func (brokenStore) Ping(context.Context) error { return errors.New("no reachable servers") }

func newServer(t *testing.T, s license.Store) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	issuer, err := licensecrypto.NewHMACIssuer([]byte("router-secret"))
	require.NoError(t, err)

	hash, err := argon2id.CreateHash(adminKey, fastParams)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	stack := services.InitServices(services.Deps{
		Store:   s,
		Issuer:  issuer,
		Metrics: metrics.New(reg),
		Logger:  logger,
	})
	r := NewRouter(handlers.New(stack, logger), Options{
		AdminGate: NewAdminGate(hash, logger),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string, header http.Header) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func adminHeader() http.Header {
	return http.Header{"Authorization": []string{"Bearer " + adminKey}}
}

func TestValidateFlow(t *testing.T) {
	srv := newServer(t, memstore.New())

	resp, body := post(t, srv, "/admin/create-license", `{"key":"ABC","maxAccounts":1}`, adminHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "License created", body["message"])

	resp, body = post(t, srv, "/validate", `{"license_key":"ABC","account_number":5551234,"ea_version":"1.2"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, body, "message")
	token := body["token"].(string)

	_, body = post(t, srv, "/validate", `{"license_key":"ABC","account_number":42}`, nil)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Account limit exceeded. Contact support.", body["message"])

	_, body = post(t, srv, "/verify", `{"token":"`+token+`"}`, nil)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ABC", body["license_key"])
	assert.EqualValues(t, 5551234, body["account_number"])
}

func TestValidateRejectionsAreStatus200(t *testing.T) {
	srv := newServer(t, memstore.New())

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing account", `{"license_key":"ABC"}`, "Missing details"},
		{"missing key", `{"account_number":1}`, "Missing details"},
		{"unknown key", `{"license_key":"NOPE","account_number":1}`, "Invalid license key"},
		{"malformed json", `{"license_key":`, "Invalid request body"},
		{"oversized body", `{"license_key":"` + strings.Repeat("A", 200<<10) + `","account_number":1}`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, "/validate", tt.body, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["message"])
		})
	}
}

func TestInfrastructureErrorsAreGeneric(t *testing.T) {
	srv := newServer(t, brokenStore{Store: memstore.New()})

	resp, body := post(t, srv, "/validate", `{"license_key":"ABC","account_number":1}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": false, "message": "Server error"}, body)

	resp, body = post(t, srv, "/admin/create-license", `{"key":"ABC"}`, adminHeader())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": false, "message": "Error creating license"}, body)
}

func TestCreateLicenseDuplicate(t *testing.T) {
	srv := newServer(t, memstore.New())

	_, body := post(t, srv, "/admin/create-license", `{"key":"DUP","maxAccounts":2,"expiry":"2031-01-01"}`, adminHeader())
	require.Equal(t, true, body["success"])

	_, body = post(t, srv, "/admin/create-license", `{"key":"DUP","maxAccounts":5}`, adminHeader())
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Error creating license", body["message"])
}

func TestCreateLicenseGeneratesKey(t *testing.T) {
	srv := newServer(t, memstore.New())

	_, body := post(t, srv, "/admin/create-license", `{"maxAccounts":3}`,
		http.Header{AdminKeyHeader: []string{adminKey}})
	require.Equal(t, true, body["success"])
	key, _ := body["key"].(string)
	assert.True(t, strings.HasPrefix(key, licensecrypto.KeyPrefix+"-"))
}

func TestAdminGate(t *testing.T) {
	srv := newServer(t, memstore.New())

	for name, h := range map[string]http.Header{
		"no credentials": nil,
		"wrong key":      {"Authorization": []string{"Bearer nope"}},
		"wrong scheme":   {"Authorization": []string{"Basic " + adminKey}},
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := post(t, srv, "/admin/create-license", `{"key":"X"}`, h)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Unauthorized", body["title"])
		})
	}
}

func TestAdminGateWithoutHashRefuses(t *testing.T) {
	gate := NewAdminGate("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/create-license", nil)
	req.Header.Set(AdminKeyHeader, "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var nilGate *AdminGate
	rec = httptest.NewRecorder()
	nilGate.Middleware(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t, memstore.New())

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	post(t, srv, "/validate", `{"license_key":"X"}`, nil)

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `licensor_validations_total{result="missing_details"} 1`)

	broken := newServer(t, brokenStore{Store: memstore.New()})
	resp, err = broken.Client().Get(broken.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	srv := newServer(t, memstore.New())

	resp, err := srv.Client().Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/validate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
