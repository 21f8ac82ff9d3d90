package rpc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckSkipsWhenNoEndpoints(t *testing.T) {
	c := NewAgencyClient()
	assert.NoError(t, c.HealthCheck(nil))
}

func TestHealthCheckPassesOnOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewAgencyClient()
	assert.NoError(t, c.HealthCheck([]string{srv.URL}))
}

func TestHealthCheckFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewAgencyClient()
	assert.Error(t, c.HealthCheck([]string{srv.URL}))
}

func TestServerIDParsesSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"PRMR-0001","error":false}`))
	}))
	defer srv.Close()

	c := NewAgencyClient()
	c.Retries = 1
	id, err := c.ServerID(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "PRMR-0001", id)
}

func TestServerIDExhaustsRetriesOnErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":true}`))
	}))
	defer srv.Close()

	c := NewAgencyClient()
	c.Retries = 2
	c.Backoff = 0
	_, err := c.ServerID(srv.URL)
	assert.Error(t, err)
}

func TestRemoveServerSkipsWhenNoEndpoints(t *testing.T) {
	c := NewAgencyClient()
	assert.NoError(t, c.RemoveServer(nil, "PRMR-0001"))
}

func TestRemoveServerSucceedsAgainstFirstReachableEndpoint(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewAgencyClient()
	err := c.RemoveServer([]string{srv.URL}, "PRMR-0001")
	require.NoError(t, err)
	assert.Contains(t, gotBody, "PRMR-0001")
}
