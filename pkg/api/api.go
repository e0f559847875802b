// Package api is a client for the EV charger reservation API: the station
// directory, bookings, reviews and payment orders.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/evcharger/internal/booking"
	"github.com/rubiojr/evcharger/pkg/station"
)

const (
	DefaultBaseURL = "https://evcharger-springboot.onrender.com/api"
	DefaultTimeout = 10 * time.Second

	MinRating = 1
	MaxRating = 5
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Options configures a Client. Zero values get defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Token      string
	HTTPClient *http.Client
}

// Client talks to the reservation API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client. The token, when set, is sent as a bearer token.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: httpClient,
	}
}

// FetchStations fetches the station directory.
func (c *Client) FetchStations(ctx context.Context) (*StationList, error) {
	var list StationList
	if err := c.do(ctx, http.MethodGet, "/stations", nil, &list); err != nil {
		return nil, fmt.Errorf("error fetching stations: %w", err)
	}
	return &list, nil
}

// Stations fetches the station directory as normalized records.
func (c *Client) Stations(ctx context.Context) ([]station.Record, error) {
	list, err := c.FetchStations(ctx)
	if err != nil {
		return nil, err
	}
	return list.Records(), nil
}

// NearbyStations asks the API for stations within rangeKm of pos.
func (c *Client) NearbyStations(ctx context.Context, pos station.Position, rangeKm float64) ([]station.Record, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(pos.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(pos.Lng, 'f', -1, 64))
	q.Set("range", strconv.FormatFloat(rangeKm, 'f', -1, 64))

	var list StationList
	if err := c.do(ctx, http.MethodGet, "/stations/nearby?"+q.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("error fetching nearby stations: %w", err)
	}
	return list.Records(), nil
}

// CreateBooking creates a booking and returns it as the API recorded it.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (booking.Booking, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &raw); err != nil {
		return booking.Booking{}, fmt.Errorf("error creating booking: %w", err)
	}
	if len(raw) == 0 {
		return booking.Booking{}, nil
	}

	var wrapped struct {
		Booking *remoteBooking `json:"booking"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Booking != nil {
		return wrapped.Booking.toBooking(), nil
	}
	var flat remoteBooking
	if err := json.Unmarshal(raw, &flat); err != nil {
		return booking.Booking{}, fmt.Errorf("error unmarshaling booking: %w", err)
	}
	return flat.toBooking(), nil
}

// CancelBooking cancels a booking on the server.
func (c *Client) CancelBooking(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("error cancelling booking %s: %w", id, err)
	}
	return nil
}

// UserBookings lists the authenticated user's bookings.
func (c *Client) UserBookings(ctx context.Context) ([]booking.Booking, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/bookings/user", nil, &raw); err != nil {
		return nil, fmt.Errorf("error fetching bookings: %w", err)
	}
	if len(raw) == 0 {
		return []booking.Booking{}, nil
	}

	var items []remoteBooking
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapped struct {
			Bookings []remoteBooking `json:"bookings"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("error unmarshaling bookings: %w", err)
		}
		items = wrapped.Bookings
	}

	bookings := make([]booking.Booking, 0, len(items))
	for _, item := range items {
		bookings = append(bookings, item.toBooking())
	}
	return bookings, nil
}

// Validate checks the rating bounds.
func (r ReviewRequest) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return fmt.Errorf("%w, got %d", ErrInvalidRating, r.Rating)
	}
	if r.StationID == 0 {
		return errors.New("station id is required")
	}
	return nil
}

// SubmitReview posts a station review. The request is validated first.
func (c *Client) SubmitReview(ctx context.Context, req ReviewRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, "/reviews", req, nil); err != nil {
		return fmt.Errorf("error submitting review: %w", err)
	}
	return nil
}

// StationReviews lists the reviews of a station.
func (c *Client) StationReviews(ctx context.Context, stationID int64) ([]Review, error) {
	var reviews []Review
	path := "/reviews/station/" + strconv.FormatInt(stationID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &reviews); err != nil {
		return nil, fmt.Errorf("error fetching reviews for station %d: %w", stationID, err)
	}
	return reviews, nil
}

// CreatePaymentOrder starts a payment for amount rupees. The API expects
// the amount in paise.
func (c *Client) CreatePaymentOrder(ctx context.Context, amount float64) (*PaymentOrder, error) {
	body := map[string]int64{"amount": ToPaise(amount)}

	var order PaymentOrder
	if err := c.do(ctx, http.MethodPost, "/payment/create-order", body, &order); err != nil {
		return nil, fmt.Errorf("error creating payment order: %w", err)
	}
	return &order, nil
}

// ToPaise converts rupees to integer paise.
func ToPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var msg messageResponse
		if json.Unmarshal(data, &msg) == nil {
			statusErr.Message = msg.Message
		}
		return statusErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	return nil
}
