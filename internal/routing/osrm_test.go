package routing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"convoy_web/internal/routing"
)

const routeResponse = `{
	"code": "Ok",
	"routes": [{
		"distance": 1234.5,
		"duration": 180.2,
		"geometry": {"coordinates": [[11.5, 48.1], [11.6, 48.2]]},
		"legs": [{
			"steps": [{
				"distance": 600.0,
				"duration": 90.0,
				"name": "Hauptstrasse",
				"maneuver": {
					"type": "turn",
					"modifier": "left",
					"location": [11.55, 48.15]
				}
			}]
		}]
	}]
}`

func TestDrivingDistance(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(routeResponse))
	}))
	defer server.Close()

	client := routing.NewClient(server.URL)
	distance, err := client.DrivingDistance(context.Background(), 48.1, 11.5, 48.2, 11.6)
	require.NoError(t, err)
	require.Equal(t, 1234.5, distance)

	// OSRM 的座標順序是 lon,lat
	require.Contains(t, gotPath, "/route/v1/driving/11.5")
}

func TestDrivingDistanceNoRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
	}))
	defer server.Close()

	client := routing.NewClient(server.URL)
	_, err := client.DrivingDistance(context.Background(), 0, 0, 1, 1)
	require.Error(t, err)
}

func TestDrivingDistanceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := routing.NewClient(server.URL)
	_, err := client.DrivingDistance(context.Background(), 0, 0, 1, 1)
	require.Error(t, err)
}

func TestDrivingDistanceHonorsContextCancel(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := routing.NewClient(server.URL)
	_, err := client.DrivingDistance(ctx, 0, 0, 1, 1)
	require.Error(t, err)
}

func TestRouteGeometry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.RawQuery, "geometries=geojson")
		w.Write([]byte(routeResponse))
	}))
	defer server.Close()

	client := routing.NewClient(server.URL)
	result, err := client.RouteGeometry(context.Background(), 48.1, 11.5, 48.2, 11.6)
	require.NoError(t, err)

	require.Equal(t, 1234.5, result.Distance)
	require.Equal(t, 180.2, result.Duration)

	// GeoJSON 的 [lon, lat] 被轉換為 latitude/longitude
	require.Len(t, result.Route, 2)
	require.Equal(t, 48.1, result.Route[0].Latitude)
	require.Equal(t, 11.5, result.Route[0].Longitude)

	require.Len(t, result.Steps, 1)
	require.Equal(t, "turn", result.Steps[0].Type)
	require.Equal(t, "left", result.Steps[0].Modifier)
	require.Equal(t, "Hauptstrasse", result.Steps[0].Name)
	require.Equal(t, 48.15, result.Steps[0].Location.Latitude)
}
