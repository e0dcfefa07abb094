package lookup

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charterops-recon/internal/config"
)

func newTestClient(baseURL string) *BookingClient {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBookingClient(logger, &config.BookingConfig{BaseURL: baseURL, Timeout: 2 * time.Second})
}

func TestBookingClient_HasBooking(t *testing.T) {
	serviceDate := time.Date(2026, time.July, 4, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bookings/count", r.URL.Path)
		assert.Equal(t, "2026-07-04", r.URL.Query().Get("date"))
		assert.Equal(t, "45000", r.URL.Query().Get("amount_cents"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count": 2}`))
	}))
	defer server.Close()

	count, err := newTestClient(server.URL).HasBooking(context.Background(), serviceDate, 45000)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBookingClient_HasBooking_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).HasBooking(context.Background(), time.Now(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestBookingClient_HasBooking_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).HasBooking(context.Background(), time.Now(), 100)
	assert.Error(t, err)
}
