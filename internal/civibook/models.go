package civibook

import (
	"encoding/json"
	"fmt"

	"github.com/civibook/civibook-go/internal/recurrence"
)

// POI is a bookable venue (point of interest).
type POI struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	ImagePath   string `json:"img_path,omitempty"`
}

type poiResponse struct {
	Data  []POI `json:"data"`
	Total int   `json:"total,omitempty"`
}

// RecurringDays is the wire form of a weekday selection. The backend
// stores it as a JSON-encoded string inside the JSON payload, so it
// decodes either a real array or a quoted "[1,2]" string and always
// encodes a plain array.
type RecurringDays []recurrence.Weekday

func (r RecurringDays) MarshalJSON() ([]byte, error) {
	return json.Marshal([]recurrence.Weekday(r))
}

func (r *RecurringDays) UnmarshalJSON(data []byte) error {
	var nested string
	if err := json.Unmarshal(data, &nested); err == nil {
		data = []byte(nested)
	}
	var days []recurrence.Weekday
	if err := json.Unmarshal(data, &days); err != nil {
		return fmt.Errorf("recurring_days: %w", err)
	}
	*r = days
	return nil
}

// Set converts the wire list to a canonical weekday set.
func (r RecurringDays) Set() recurrence.WeekdaySet {
	return recurrence.NewWeekdaySet(r...)
}

// Event is a fetched platform event. Instants are ISO-8601 strings;
// EventStartDate/EventEndDate are plain yyyy-MM-dd dates.
type Event struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Category           string        `json:"category"`
	EventStart         string        `json:"event_start"`
	EventEnd           string        `json:"event_end"`
	EventStartDate     string        `json:"event_start_date"`
	EventEndDate       string        `json:"event_end_date"`
	EventStartTime     string        `json:"event_start_time,omitempty"`
	ReservationRequest string        `json:"reservation_request,omitempty"`
	RecurringDays      RecurringDays `json:"recurring_days"`
	EntryCost          string        `json:"entry_cost,omitempty"`
	ImagePath          string        `json:"img_path,omitempty"`
	POIID              int64         `json:"poi_id"`
	POI                *POI          `json:"poi,omitempty"`
	Likes              int           `json:"likes"`
	IsLiked            bool          `json:"isLiked"`
}

// EventPage is one page of a filtered event listing.
type EventPage struct {
	Data       []Event `json:"data"`
	Page       int     `json:"current_page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"last_page"`
	Total      int     `json:"total"`
}

// EventFilter narrows and paginates the event listing. Zero values
// mean "no constraint".
type EventFilter struct {
	POIID     int64
	Category  string
	Search    string
	StartDate string // yyyy-MM-dd
	EndDate   string // yyyy-MM-dd
	Page      int
	PerPage   int
}

// Notification is one reservation-status notification.
type Notification struct {
	ID        string           `json:"id"`
	CreatedAt string           `json:"created_at"`
	ReadAt    *string          `json:"read_at"`
	Data      NotificationData `json:"data"`
}

// NotificationData carries the notification body.
type NotificationData struct {
	EventName         string `json:"event_name"`
	ReservationStatus string `json:"reservation_status"`
	Message           string `json:"message"`
}

// Read reports whether the notification has been marked read.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}

type notificationResponse struct {
	Notifications []Notification `json:"notifications"`
}

// EventData is the created-event payload of a successful submission.
type EventData struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	EventStart  string `json:"event_start"`
	EventEnd    string `json:"event_end"`
}

type eventResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *EventData `json:"data,omitempty"`
}

// EventSubmission is the multipart field set for a booking request.
// All values are pre-formatted by the booking form.
type EventSubmission struct {
	Name           string
	Description    string
	Category       string
	EventStart     string // ISO-8601 booking window start
	EventEnd       string // ISO-8601 booking window end
	EventStartDate string // yyyy-MM-dd
	EventEndDate   string // yyyy-MM-dd
	EventStartTime string // HH:mm
	EntryCost      string
	RecurringDays  RecurringDays
	POIID          string
	Image          []byte // optional JPEG bytes
}

// ProfileUpdate is the editable profile field set.
type ProfileUpdate struct {
	FirstName   string
	LastName    string
	Username    string
	Email       string
	PhoneNumber string
	Image       []byte // optional JPEG bytes
}
