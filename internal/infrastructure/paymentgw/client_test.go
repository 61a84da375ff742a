package paymentgw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/pkg/config"
)

func TestNew_SinTokenDevuelveNil(t *testing.T) {
	assert.Nil(t, New(config.PaymentGatewayConfig{BaseURL: "http://x"}))
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/555", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":555,"status":"approved","external_reference":"100"}`))
	}))
	defer srv.Close()

	p, err := New(config.PaymentGatewayConfig{BaseURL: srv.URL, AccessToken: "tok", Timeout: time.Second}).
		Resolve(context.Background(), "555", nil)
	require.NoError(t, err)
	assert.Equal(t, "555", p.ID)
	assert.Equal(t, "approved", p.Status)
	assert.Equal(t, "100", p.ExternalReference)
}

func TestResolve_NoEncontrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(config.PaymentGatewayConfig{BaseURL: srv.URL, AccessToken: "tok"}).Resolve(context.Background(), "1", nil)
	assert.Error(t, err)
}
