package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tripmail-service/internal/domain/entity"
)

var (
	destinationKeys = []string{"destination", "destination_city", "trip_destination", "destinationCity"}
	statusKeys      = []string{"status", "trip_status", "tripStatus", "booking_status"}
)

// ExtractionError is a malformed or incomplete model response
type ExtractionError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// draftPayload is the JSON shape the model is asked to return. Fields the
// model tends to mistype are decoded loosely.
type draftPayload struct {
	Destination        string                `json:"destination"`
	Dates              string                `json:"dates"`
	Status             string                `json:"status"`
	Flights            []flightPayload       `json:"flights"`
	Hotels             []hotelPayload        `json:"hotels"`
	Travelers          []interface{}         `json:"travelers"`
	TripTitleDashboard string                `json:"trip_title_dashboard"`
	TripTitlePage      string                `json:"trip_title_page"`
	AISummary          entity.AISummary      `json:"ai_summary"`
	CancellationReason string                `json:"cancellation_reason"`
	Credits            []entity.TravelCredit `json:"credits"`
}

type flightPayload struct {
	Airline          string        `json:"airline"`
	FlightNumber     interface{}   `json:"flight_number"`
	Date             string        `json:"date"`
	Departure        string        `json:"departure"`
	Arrival          string        `json:"arrival"`
	DepartureAirport string        `json:"departure_airport"`
	ArrivalAirport   string        `json:"arrival_airport"`
	DistanceMiles    interface{}   `json:"distance_miles"`
	Duration         string        `json:"duration"`
	Travelers        []interface{} `json:"travelers"`
}

type hotelPayload struct {
	Name               string        `json:"name"`
	Address            string        `json:"address"`
	CheckIn            string        `json:"check_in"`
	CheckOut           string        `json:"check_out"`
	ConfirmationNumber interface{}   `json:"confirmation_number"`
	Travelers          []interface{} `json:"travelers"`
}

// UnwrapTripPayload turns a raw model response into a trip-shaped object.
// It strips code fences, takes the first element of a top-level array,
// searches one level down for an object holding both a destination-like and
// a status-like key, and fails when no destination remains.
func UnwrapTripPayload(raw string) (map[string]json.RawMessage, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, &ExtractionError{Reason: "empty response", Raw: raw}
	}

	var value interface{}
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return nil, &ExtractionError{Reason: "response is not JSON", Raw: raw, Err: err}
	}

	if arr, ok := value.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, &ExtractionError{Reason: "empty array response", Raw: raw}
		}
		value = arr[0]
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, &ExtractionError{Reason: "response is not an object", Raw: raw}
	}

	// A null or blank top-level destination does not hide a nested trip
	if firstString(obj, destinationKeys) == "" {
		if nested := findNestedTrip(obj); nested != nil {
			obj = nested
		}
	}

	dest := firstString(obj, destinationKeys)
	if strings.TrimSpace(dest) == "" {
		return nil, &ExtractionError{Reason: "missing destination", Raw: raw}
	}
	obj["destination"] = dest
	if status := firstString(obj, statusKeys); status != "" {
		obj["status"] = status
	}

	out := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, &ExtractionError{Reason: "re-encode field " + k, Raw: raw, Err: err}
		}
		out[k] = encoded
	}
	return out, nil
}

// decodeDraft converts an unwrapped payload into a TripDraft
func decodeDraft(obj map[string]json.RawMessage, raw string) (*entity.TripDraft, error) {
	encoded, err := json.Marshal(obj)
	if err != nil {
		return nil, &ExtractionError{Reason: "re-encode payload", Raw: raw, Err: err}
	}

	var p draftPayload
	if err := json.Unmarshal(encoded, &p); err != nil {
		return nil, &ExtractionError{Reason: "payload does not match trip shape", Raw: raw, Err: err}
	}

	draft := &entity.TripDraft{
		Destination:        strings.TrimSpace(p.Destination),
		Dates:              strings.TrimSpace(p.Dates),
		Travelers:          looseTravelers(p.Travelers),
		TripTitleDashboard: strings.TrimSpace(p.TripTitleDashboard),
		TripTitlePage:      strings.TrimSpace(p.TripTitlePage),
		AISummary:          p.AISummary,
		Credits:            p.Credits,
	}

	for _, f := range p.Flights {
		draft.Flights = append(draft.Flights, entity.Flight{
			Airline:          strings.TrimSpace(f.Airline),
			FlightNumber:     looseString(f.FlightNumber),
			Date:             strings.TrimSpace(f.Date),
			Departure:        strings.TrimSpace(f.Departure),
			Arrival:          strings.TrimSpace(f.Arrival),
			DepartureAirport: strings.TrimSpace(f.DepartureAirport),
			ArrivalAirport:   strings.TrimSpace(f.ArrivalAirport),
			DistanceMiles:    looseFloat(f.DistanceMiles),
			Duration:         strings.TrimSpace(f.Duration),
			Travelers:        looseNames(f.Travelers),
		})
	}
	for _, h := range p.Hotels {
		draft.Hotels = append(draft.Hotels, entity.Hotel{
			Name:               strings.TrimSpace(h.Name),
			Address:            strings.TrimSpace(h.Address),
			CheckIn:            strings.TrimSpace(h.CheckIn),
			CheckOut:           strings.TrimSpace(h.CheckOut),
			ConfirmationNumber: looseString(h.ConfirmationNumber),
			Travelers:          looseNames(h.Travelers),
		})
	}

	// Only a stated cancellation is carried, so a routine confirmation never
	// reactivates a trip an owner cancelled by hand
	if isCancelledStatus(p.Status) {
		cancelled := entity.TripStatusCancelled
		draft.Status = &cancelled
		draft.Cancellation = &entity.Cancellation{Reason: strings.TrimSpace(p.CancellationReason)}
	}

	return draft, nil
}

func isCancelledStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == "cancelled" || s == "canceled" || s == "cancellation"
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func findNestedTrip(obj map[string]interface{}) map[string]interface{} {
	for _, v := range obj {
		candidate := v
		if arr, ok := v.([]interface{}); ok && len(arr) > 0 {
			candidate = arr[0]
		}
		nested, ok := candidate.(map[string]interface{})
		if !ok {
			continue
		}
		if firstString(nested, destinationKeys) != "" && hasAnyKey(nested, statusKeys) {
			return nested
		}
	}
	return nil
}

func hasAnyKey(obj map[string]interface{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func firstString(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func looseString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func looseFloat(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		cleaned := strings.TrimSpace(strings.NewReplacer(",", "", "miles", "", "mi", "").Replace(strings.ToLower(t)))
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return &f
		}
	}
	return nil
}

// looseNames accepts ["Ann"] as well as [{"name": "Ann"}]
func looseNames(values []interface{}) []string {
	var names []string
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if name := strings.TrimSpace(t); name != "" {
				names = append(names, name)
			}
		case map[string]interface{}:
			if name, ok := t["name"].(string); ok && strings.TrimSpace(name) != "" {
				names = append(names, strings.TrimSpace(name))
			}
		}
	}
	return names
}

func looseTravelers(values []interface{}) []entity.Traveler {
	var travelers []entity.Traveler
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if name := strings.TrimSpace(t); name != "" {
				travelers = append(travelers, entity.Traveler{Name: name})
			}
		case map[string]interface{}:
			name, _ := t["name"].(string)
			role, _ := t["role"].(string)
			if strings.TrimSpace(name) != "" {
				travelers = append(travelers, entity.Traveler{Name: strings.TrimSpace(name), Role: strings.TrimSpace(role)})
			}
		}
	}
	return travelers
}
