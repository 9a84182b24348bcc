package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func passing(ctx context.Context) (bool, error) { return true, nil }

func failing(ctx context.Context) (bool, error) { return false, errors.New("unreachable") }

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Service != "live-translator" || status.Status != "healthy" {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestReadinessHandler(t *testing.T) {
	handler := ReadinessHandler(
		HealthCheck{Name: "recognizer", Check: passing},
		HealthCheck{Name: "bus", Check: failing},
		HealthCheck{Name: "skipped"},
	)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "not_ready" {
		t.Errorf("Expected not_ready, got %q", status.Status)
	}
	if status.Dependencies["bus"].Message != "unreachable" {
		t.Errorf("Expected bus failure message, got %+v", status.Dependencies["bus"])
	}
	if status.Dependencies["recognizer"].Status != "healthy" {
		t.Errorf("Expected healthy recognizer, got %+v", status.Dependencies["recognizer"])
	}
	if _, ok := status.Dependencies["skipped"]; ok {
		t.Error("Expected nil check to be skipped")
	}
}

func TestReadinessHandler_AllHealthy(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadinessHandler(HealthCheck{Name: "translator", Check: passing})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestGRPCHealthServer(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	check := func(ctx context.Context) (bool, error) { return healthy.Load(), nil }
	s := NewGRPCHealthServer([]HealthCheck{{Name: "recognizer", Check: check}}, time.Hour, zerolog.Nop())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.ServeListener(ctx, lis)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	checkStatus := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			rctx, rcancel := context.WithTimeout(ctx, time.Second)
			resp, err := client.Check(rctx, &healthpb.HealthCheckRequest{Service: "live-translator"})
			rcancel()
			if err == nil && resp.Status == want {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("Expected status %v, last response %v (err %v)", want, resp, err)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}

	checkStatus(healthpb.HealthCheckResponse_SERVING)

	healthy.Store(false)
	if s.Refresh(ctx) {
		t.Error("Expected Refresh to report unhealthy")
	}
	checkStatus(healthpb.HealthCheckResponse_NOT_SERVING)
}
