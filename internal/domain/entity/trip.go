// internal/domain/entity/trip.go
package entity

import (
	"time"
)

// TripStatus is the lifecycle state of a persisted trip
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCancelled TripStatus = "cancelled"
)

// Data-quality warnings attached to a saved trip
const (
	WarningUnparseableDates = "unparseable_dates"
)

// Flight is one flight segment as extracted and normalized
type Flight struct {
	Airline          string   `json:"airline" bson:"airline"`
	FlightNumber     string   `json:"flight_number" bson:"flightNumber"`
	Date             string   `json:"date,omitempty" bson:"date,omitempty"`
	Departure        string   `json:"departure" bson:"departure"`
	Arrival          string   `json:"arrival" bson:"arrival"`
	DepartureAirport string   `json:"departure_airport,omitempty" bson:"departureAirport,omitempty"`
	ArrivalAirport   string   `json:"arrival_airport,omitempty" bson:"arrivalAirport,omitempty"`
	DistanceMiles    *float64 `json:"distance_miles,omitempty" bson:"distanceMiles,omitempty"`
	Duration         string   `json:"duration,omitempty" bson:"duration,omitempty"`
	Travelers        []string `json:"travelers,omitempty" bson:"travelers,omitempty"`
}

// Hotel is one hotel stay
type Hotel struct {
	Name               string   `json:"name" bson:"name"`
	Address            string   `json:"address,omitempty" bson:"address,omitempty"`
	CheckIn            string   `json:"check_in,omitempty" bson:"checkIn,omitempty"`
	CheckOut           string   `json:"check_out,omitempty" bson:"checkOut,omitempty"`
	ConfirmationNumber string   `json:"confirmation_number,omitempty" bson:"confirmationNumber,omitempty"`
	Travelers          []string `json:"travelers,omitempty" bson:"travelers,omitempty"`
}

// Traveler references a person on the trip. ID is set only when the name
// resolves to a family member of the owning account.
type Traveler struct {
	ID   string `json:"id,omitempty" bson:"id,omitempty"`
	Name string `json:"name" bson:"name"`
	Role string `json:"role,omitempty" bson:"role,omitempty"`
}

// AISummary holds the human-facing derived fields
type AISummary struct {
	Topology           string `json:"topology" bson:"topology"`
	HumanTitle         string `json:"human_title" bson:"humanTitle"`
	VerboseDescription string `json:"verbose_description" bson:"verboseDescription"`
	LayoverText        string `json:"layover_text" bson:"layoverText"`
}

// IsZero reports whether no summary field is populated
func (s AISummary) IsZero() bool {
	return s == AISummary{}
}

// Cancellation records a manual or extracted cancellation
type Cancellation struct {
	CancelledAt *time.Time `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	Reason      string     `json:"reason,omitempty" bson:"reason,omitempty"`
	RefundType  string     `json:"refundType,omitempty" bson:"refundType,omitempty"`
}

// TravelCredit is a future-travel credit left over from a cancellation
type TravelCredit struct {
	Issuer    string  `json:"issuer" bson:"issuer"`
	Amount    float64 `json:"amount" bson:"amount"`
	Currency  string  `json:"currency,omitempty" bson:"currency,omitempty"`
	ExpiresOn string  `json:"expiresOn,omitempty" bson:"expiresOn,omitempty"`
	Reference string  `json:"reference,omitempty" bson:"reference,omitempty"`
}

// TripDraft is the untrusted output of extraction. It has no identity.
// Status, Cancellation and Credits are nil unless the source document states them.
type TripDraft struct {
	Destination        string
	Dates              string
	Status             *TripStatus
	Flights            []Flight
	Hotels             []Hotel
	Travelers          []Traveler
	TripTitleDashboard string
	TripTitlePage      string
	AISummary          AISummary
	Cancellation       *Cancellation
	Credits            []TravelCredit
}

// Trip is the persisted, merged trip record owned by one account
type Trip struct {
	DocID              string         `json:"-" bson:"_id"`
	ID                 string         `json:"id" bson:"tripId"`
	AccountID          string         `json:"accountId" bson:"accountId"`
	Destination        string         `json:"destination" bson:"destination"`
	Dates              string         `json:"dates" bson:"dates"`
	StartsAt           int64          `json:"startsAt" bson:"startsAt"`
	Flights            []Flight       `json:"flights" bson:"flights"`
	Hotels             []Hotel        `json:"hotels" bson:"hotels"`
	Travelers          []Traveler     `json:"travelers" bson:"travelers"`
	TripTitleDashboard string         `json:"trip_title_dashboard" bson:"tripTitleDashboard"`
	TripTitlePage      string         `json:"trip_title_page" bson:"tripTitlePage"`
	AISummary          AISummary      `json:"ai_summary" bson:"aiSummary"`
	Status             TripStatus     `json:"status" bson:"status"`
	Cancellation       *Cancellation  `json:"cancellation,omitempty" bson:"cancellation,omitempty"`
	Credits            []TravelCredit `json:"credits,omitempty" bson:"credits,omitempty"`
	DataWarnings       []string       `json:"dataWarnings,omitempty" bson:"dataWarnings,omitempty"`
	UploadedAt         time.Time      `json:"uploadedAt" bson:"uploadedAt"`
	UpdatedAt          time.Time      `json:"updatedAt" bson:"updatedAt"`
	SourceDocument     string         `json:"sourceDocument" bson:"sourceDocument"`
	UploadLogID        string         `json:"uploadLogId,omitempty" bson:"uploadLogId,omitempty"`
	DebugPrompt        string         `json:"debugPrompt,omitempty" bson:"debugPrompt,omitempty"`
	DebugResponse      string         `json:"debugResponse,omitempty" bson:"debugResponse,omitempty"`
	Version            int64          `json:"-" bson:"version"`
}

// TripDocID is the storage key of a trip inside its owner's collection
func TripDocID(accountID, tripID string) string {
	return accountID + "/" + tripID
}

// HasWarning reports whether the trip carries the given data-quality warning
func (t *Trip) HasWarning(w string) bool {
	for _, existing := range t.DataWarnings {
		if existing == w {
			return true
		}
	}
	return false
}
