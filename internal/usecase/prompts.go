package usecase

import (
	"encoding/json"
	"strings"

	"tripmail-service/internal/domain/entity"
)

const scoringPrompt = `You are screening inbound email for a travel itinerary service.
Decide whether the document below is a genuine travel confirmation, change notice or
cancellation (flight, hotel, rail or car booking with concrete reservation details).
Newsletters, promotions, fare alerts and loyalty statements are not confirmations.

Respond with JSON only:
{"score": <number between 0 and 1>, "reason": "<short snake_case code>", "explanation": "<one sentence>"}`

const extractionPrompt = `Extract the trip described in the travel document below.
Resolve airport codes to city names for the destination. Classify the itinerary topology
as "One-Way", "Round-Trip" or "Multi-City". Give dates as a range "Mon DD, YYYY - Mon DD, YYYY".
Set "status" to "cancelled" only when the document states the booking was cancelled.

Respond with JSON only, in this shape:
{
  "destination": "city",
  "dates": "Mar 15, 2026 - Mar 22, 2026",
  "status": "active|cancelled",
  "cancellation_reason": "",
  "flights": [{"airline": "", "flight_number": "", "date": "", "departure": "City (XXX)", "arrival": "City (XXX)",
               "departure_airport": "XXX", "arrival_airport": "XXX", "distance_miles": 0, "duration": "11h 20m",
               "travelers": ["name"]}],
  "hotels": [{"name": "", "address": "", "check_in": "", "check_out": "", "confirmation_number": "", "travelers": ["name"]}],
  "travelers": [{"name": "", "role": ""}],
  "credits": [{"issuer": "", "amount": 0, "currency": "", "expiresOn": "", "reference": ""}],
  "trip_title_dashboard": "",
  "trip_title_page": "",
  "ai_summary": {"topology": "", "human_title": "", "verbose_description": "", "layover_text": ""}
}`

const titlesPrompt = `Write display titles for the trip below. Keep the destination and status unchanged.
Classify the itinerary topology as "One-Way", "Round-Trip" or "Multi-City" and describe layovers.

Respond with JSON only, in this shape:
{"destination": "", "status": "", "trip_title_dashboard": "", "trip_title_page": "",
 "ai_summary": {"topology": "", "human_title": "", "verbose_description": "", "layover_text": ""}}`

// titlesInput is the merged itinerary sent to the regenerate-titles call
type titlesInput struct {
	Destination string          `json:"destination"`
	Dates       string          `json:"dates"`
	Status      string          `json:"status"`
	Flights     []entity.Flight `json:"flights"`
	Hotels      []entity.Hotel  `json:"hotels"`
}

func buildTitlesText(trip *entity.Trip) string {
	body, err := json.MarshalIndent(titlesInput{
		Destination: trip.Destination,
		Dates:       trip.Dates,
		Status:      string(trip.Status),
		Flights:     trip.Flights,
		Hotels:      trip.Hotels,
	}, "", "  ")
	if err != nil {
		return trip.Destination
	}
	return string(body)
}

func buildScoringText(subject, text string) string {
	var sb strings.Builder
	sb.WriteString("Subject: ")
	sb.WriteString(subject)
	sb.WriteString("\n\n")
	sb.WriteString(text)
	return sb.String()
}
