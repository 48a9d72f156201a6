package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/option"
)

func newTestClusterActuator(t *testing.T, handler http.Handler) *ClusterActuator {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := container.NewService(context.Background(),
		option.WithEndpoint(ts.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	return NewClusterActuator(&Clients{Container: svc}, ClusterSpec{
		Project:  "acme-workflows",
		Location: "europe-west1-b",
		Name:     "dev-n8n-cluster",
	})
}

func TestConnectInfo_MissingCluster(t *testing.T) {
	a := newTestClusterActuator(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}))

	_, err := a.ConnectInfo(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestConnectInfo_DecodesEndpointAndCA(t *testing.T) {
	caPEM := "-----BEGIN CERTIFICATE-----\nabc\n-----END CERTIFICATE-----\n"
	a := newTestClusterActuator(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"name":"dev-n8n-cluster","status":"RUNNING","endpoint":"203.0.113.50","masterAuth":{"clusterCaCertificate":%q}}`,
			base64.StdEncoding.EncodeToString([]byte(caPEM)))
	}))

	info, err := a.ConnectInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.50", info.Endpoint)
	assert.Equal(t, caPEM, string(info.CACert))
}

func TestConnectInfo_NoEndpointYet(t *testing.T) {
	a := newTestClusterActuator(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name":"dev-n8n-cluster","status":"PROVISIONING"}`)
	}))

	_, err := a.ConnectInfo(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClusterNotFound)
	assert.Contains(t, err.Error(), "PROVISIONING")
}
