// Package civibook is the HTTP client for the CiviBook platform API.
// It owns transport, bearer authentication, and the mapping of error
// statuses onto typed errors; everything above it stays pure.
package civibook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client talks to the CiviBook REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

// NewClient creates a client for the API at baseURL. The session may
// be anonymous; endpoints that require authentication return
// ErrNotAuthenticated when no token is present.
func NewClient(baseURL string, timeout time.Duration, session *Session) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		session:    session,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, authenticated bool) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if authenticated {
		token := c.session.Token()
		if token == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes req, maps error statuses onto typed errors, and decodes
// a 2xx body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return decodeValidationError(body)
	case resp.StatusCode == http.StatusConflict:
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &payload)
		return &ConflictError{Message: payload.Message}
	default:
		log.Debug().Int("status", resp.StatusCode).Str("path", req.URL.Path).
			Msg("Unexpected API status")
		return &StatusError{Code: resp.StatusCode}
	}
}

// decodeValidationError accepts both 422 shapes the backend has
// produced: {"errors": {field: [msgs]}} and a bare {field: [msgs]}.
func decodeValidationError(body []byte) error {
	var wrapped struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Errors) > 0 {
		return &ValidationError{Errors: wrapped.Errors}
	}
	var flat map[string][]string
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return &ValidationError{Errors: flat}
	}
	return &ValidationError{Errors: map[string][]string{}}
}

// ListPOIs returns every venue on the platform.
func (c *Client) ListPOIs(ctx context.Context) ([]POI, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/pois/all", nil, nil, false)
	if err != nil {
		return nil, err
	}
	var resp poiResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListCalendarPOIs returns the venues selectable on the calendar tab.
func (c *Client) ListCalendarPOIs(ctx context.Context) ([]POI, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/pois/calendar", nil, nil, false)
	if err != nil {
		return nil, err
	}
	var resp poiResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Events returns one page of the filtered event listing.
func (c *Client) Events(ctx context.Context, filter EventFilter) (*EventPage, error) {
	query := url.Values{}
	if filter.POIID > 0 {
		query.Set("poi_id", strconv.FormatInt(filter.POIID, 10))
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.StartDate != "" {
		query.Set("start_date", filter.StartDate)
	}
	if filter.EndDate != "" {
		query.Set("end_date", filter.EndDate)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(filter.PerPage))
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/events-authenticated", query, nil, true)
	if err != nil {
		return nil, err
	}
	var page EventPage
	if err := c.do(req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CalendarEvents returns the accepted events for one venue, the input
// of the calendar projection. The backend takes its filter as a
// JSON-encoded query parameter.
func (c *Client) CalendarEvents(ctx context.Context, poiID int64) ([]Event, error) {
	filter, err := json.Marshal(map[string]any{
		"poi_id":              poiID,
		"reservation_request": "accepted",
	})
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	query := url.Values{"filter": {string(filter)}}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/calendar-events", query, nil, true)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []Event `json:"data"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// EventDetails returns one event with like/track state included.
func (c *Client) EventDetails(ctx context.Context, eventID int64) (*Event, error) {
	path := fmt.Sprintf("/api/view-event-auth/%d", eventID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}
	var event Event
	if err := c.do(req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Like marks the event as liked by the current user.
func (c *Client) Like(ctx context.Context, eventID int64) error {
	path := fmt.Sprintf("/api/events/%d/like", eventID)
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, nil, true)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Unlike removes the current user's like from the event.
func (c *Client) Unlike(ctx context.Context, eventID int64) error {
	path := fmt.Sprintf("/api/events/%d/unlike", eventID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil, true)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Track subscribes the current user to email reminders for the event.
func (c *Client) Track(ctx context.Context, eventID int64) error {
	path := fmt.Sprintf("/api/events/%d/track", eventID)
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, nil, true)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Untrack cancels reminder tracking for the event.
func (c *Client) Untrack(ctx context.Context, eventID int64) error {
	path := fmt.Sprintf("/api/events/%d/untrack", eventID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil, true)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// IsTracked reports whether the current user tracks the event.
func (c *Client) IsTracked(ctx context.Context, eventID int64) (bool, error) {
	path := fmt.Sprintf("/api/events/%d/isTracked", eventID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return false, err
	}
	var resp struct {
		IsTracked bool `json:"isTracked"`
	}
	if err := c.do(req, &resp); err != nil {
		return false, err
	}
	return resp.IsTracked, nil
}

// TrackedEvent is a reminder-tracked event summary.
type TrackedEvent struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	POIName        string `json:"poi_name"`
	EventStartDate string `json:"event_start_date"`
	EventEndDate   string `json:"event_end_date"`
	EventStartTime string `json:"event_start_time"`
}

// TrackedEvents lists the events the current user tracks.
func (c *Client) TrackedEvents(ctx context.Context) ([]TrackedEvent, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tracked-events", nil, nil, true)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Events []TrackedEvent `json:"events"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Notifications returns the current user's notifications, newest
// first as the backend orders them.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/notifications", nil, nil, true)
	if err != nil {
		return nil, err
	}
	var resp notificationResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	path := fmt.Sprintf("/api/notifications/%s/read", url.PathEscape(notificationID))
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, nil, true)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// CreateEvent submits a booking request as multipart form data.
// Returns the server's confirmation message and created event on
// success; 422 and 409 surface as ValidationError and ConflictError.
func (c *Client) CreateEvent(ctx context.Context, submission EventSubmission) (string, *EventData, error) {
	body, contentType, err := encodeSubmission(submission)
	if err != nil {
		return "", nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/events", nil, body, true)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var resp eventResponse
	if err := c.do(req, &resp); err != nil {
		return "", nil, err
	}
	if !resp.Success {
		return "", nil, fmt.Errorf("submission rejected: %s", resp.Message)
	}
	return resp.Message, resp.Data, nil
}

func encodeSubmission(submission EventSubmission) (*bytes.Buffer, string, error) {
	recurring, err := json.Marshal(submission.RecurringDays)
	if err != nil {
		return nil, "", fmt.Errorf("encode recurring days: %w", err)
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writer.SetBoundary(uuid.NewString()); err != nil {
		return nil, "", fmt.Errorf("set boundary: %w", err)
	}

	fields := []struct{ name, value string }{
		{"name", submission.Name},
		{"description", submission.Description},
		{"category", submission.Category},
		{"event_start", submission.EventStart},
		{"event_end", submission.EventEnd},
		{"event_start_date", submission.EventStartDate},
		{"event_end_date", submission.EventEndDate},
		{"event_start_time", submission.EventStartTime},
		{"entry_cost", submission.EntryCost},
		{"recurring_days", string(recurring)},
		{"poi_id", submission.POIID},
	}
	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", field.name, err)
		}
	}

	if len(submission.Image) > 0 {
		part, err := writer.CreateFormFile("img_path", "event.jpg")
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(submission.Image); err != nil {
			return nil, "", fmt.Errorf("write image: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}

// UpdateProfile submits edited profile fields. 422 responses surface
// as ValidationError for merging into the profile form's errors.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writer.SetBoundary(uuid.NewString()); err != nil {
		return fmt.Errorf("set boundary: %w", err)
	}

	fields := []struct{ name, value string }{
		{"first_name", update.FirstName},
		{"last_name", update.LastName},
		{"username", update.Username},
		{"email", update.Email},
		{"phone_number", update.PhoneNumber},
	}
	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return fmt.Errorf("write field %s: %w", field.name, err)
		}
	}
	if len(update.Image) > 0 {
		part, err := writer.CreateFormFile("img_path", "profile.jpg")
		if err != nil {
			return fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(update.Image); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/edit-profile-post-data", nil, buf, true)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, nil)
}
