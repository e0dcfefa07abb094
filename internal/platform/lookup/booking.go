// Package lookup contains clients for external reference services.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charterops-recon/internal/config"
)

// BookingClient queries the charter booking service for obligations matching
// a date and amount. The duplicate detector uses the count to decide whether
// two identical-looking documents are backed by distinct bookings.
type BookingClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewBookingClient(logger *slog.Logger, cfg *config.BookingConfig) *BookingClient {
	return &BookingClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type bookingCountResponse struct {
	Count int `json:"count"`
}

// HasBooking returns how many bookings exist for the given service date and
// amount.
func (c *BookingClient) HasBooking(ctx context.Context, date time.Time, amountCents int64) (int, error) {
	query := url.Values{}
	query.Set("date", date.Format("2006-01-02"))
	query.Set("amount_cents", strconv.FormatInt(amountCents, 10))

	endpoint := fmt.Sprintf("%s/api/v1/bookings/count?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build booking count request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("booking service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("booking service returned status %d", resp.StatusCode)
	}

	var body bookingCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode booking count response: %w", err)
	}

	c.logger.Debug("Booking count fetched",
		"date", date.Format("2006-01-02"),
		"amount_cents", amountCents,
		"count", body.Count)
	return body.Count, nil
}
