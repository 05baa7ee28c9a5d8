package usecase

import (
	"strings"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/pkg/utils"
)

// MergeDraft applies a draft onto an existing trip and returns the merged
// copy; existing is not modified. A nil existing trip starts a new active one.
//
// Precedence: scalar fields the draft sets replace the stored value. Flights,
// hotels and travelers are unioned by key with draft entries replacing
// matches. Status, cancellation and credits are sticky: they only change when
// the draft states them.
func MergeDraft(existing *entity.Trip, draft *entity.TripDraft) *entity.Trip {
	var merged entity.Trip
	if existing != nil {
		merged = *existing
		merged.Flights = append([]entity.Flight(nil), existing.Flights...)
		merged.Hotels = append([]entity.Hotel(nil), existing.Hotels...)
		merged.Travelers = append([]entity.Traveler(nil), existing.Travelers...)
		merged.Credits = append([]entity.TravelCredit(nil), existing.Credits...)
		merged.DataWarnings = append([]string(nil), existing.DataWarnings...)
	} else {
		merged.Status = entity.TripStatusActive
	}
	if draft == nil {
		return &merged
	}

	merged.Destination = pick(draft.Destination, merged.Destination)
	merged.Dates = pick(draft.Dates, merged.Dates)
	merged.TripTitleDashboard = pick(draft.TripTitleDashboard, merged.TripTitleDashboard)
	merged.TripTitlePage = pick(draft.TripTitlePage, merged.TripTitlePage)
	merged.AISummary = mergeSummary(merged.AISummary, draft.AISummary)

	merged.Flights = mergeFlights(merged.Flights, draft.Flights)
	merged.Hotels = mergeHotels(merged.Hotels, draft.Hotels)
	merged.Travelers = mergeTravelers(merged.Travelers, draft.Travelers)

	if draft.Status != nil {
		merged.Status = *draft.Status
	}
	if draft.Cancellation != nil {
		c := *draft.Cancellation
		merged.Cancellation = &c
	}
	if len(draft.Credits) > 0 {
		merged.Credits = append([]entity.TravelCredit(nil), draft.Credits...)
	}
	if merged.Status == "" {
		merged.Status = entity.TripStatusActive
	}

	return &merged
}

func pick(draft, stored string) string {
	if strings.TrimSpace(draft) != "" {
		return draft
	}
	return stored
}

func mergeSummary(stored, draft entity.AISummary) entity.AISummary {
	return entity.AISummary{
		Topology:           pick(draft.Topology, stored.Topology),
		HumanTitle:         pick(draft.HumanTitle, stored.HumanTitle),
		VerboseDescription: pick(draft.VerboseDescription, stored.VerboseDescription),
		LayoverText:        pick(draft.LayoverText, stored.LayoverText),
	}
}

// flightKey identifies a flight leg. A numbered flight is keyed by number,
// departure and date, so the same route flown on another day stays separate.
func flightKey(f entity.Flight) string {
	return flightRoute(f) + "|" + flightDate(f)
}

func flightRoute(f entity.Flight) string {
	number := strings.ToUpper(strings.ReplaceAll(f.FlightNumber, " ", ""))
	departure := utils.AirportCode(f.Departure, f.DepartureAirport)
	if departure == "" {
		departure = strings.ToLower(strings.TrimSpace(f.Departure))
	}
	if number == "" {
		arrival := utils.AirportCode(f.Arrival, f.ArrivalAirport)
		if arrival == "" {
			arrival = strings.ToLower(strings.TrimSpace(f.Arrival))
		}
		return strings.ToLower(f.Airline) + "|" + departure + "|" + arrival
	}
	return number + "|" + departure
}

// flightDate renders parseable dates as YYYY-MM-DD so "Jan 08, 2026" and
// "2026-01-08" compare equal
func flightDate(f entity.Flight) string {
	if ms := utils.ParseDateRangeStartIn(f.Date, time.UTC); ms != 0 {
		return time.UnixMilli(ms).UTC().Format("2006-01-02")
	}
	return strings.ToLower(strings.Join(strings.Fields(f.Date), " "))
}

// undatedMatch finds a stored numbered flight on the same route when one
// side carries no date
func undatedMatch(stored []entity.Flight, f entity.Flight) (int, bool) {
	if strings.TrimSpace(f.FlightNumber) == "" {
		return 0, false
	}
	route, date := flightRoute(f), flightDate(f)
	for i, s := range stored {
		if flightRoute(s) == route && (date == "" || flightDate(s) == "") {
			return i, true
		}
	}
	return 0, false
}

func hotelKey(h entity.Hotel) string {
	return strings.ToLower(strings.TrimSpace(h.Name)) + "|" + strings.ToLower(strings.TrimSpace(h.CheckIn))
}

func travelerKey(t entity.Traveler) string {
	return strings.ToLower(strings.Join(strings.Fields(t.Name), " "))
}

func mergeFlights(stored, incoming []entity.Flight) []entity.Flight {
	index := make(map[string]int, len(stored))
	for i, f := range stored {
		index[flightKey(f)] = i
	}
	for _, f := range incoming {
		i, ok := index[flightKey(f)]
		if !ok {
			i, ok = undatedMatch(stored, f)
		}
		if ok {
			if f.Date == "" {
				f.Date = stored[i].Date
			}
			stored[i] = f
			index[flightKey(f)] = i
			continue
		}
		index[flightKey(f)] = len(stored)
		stored = append(stored, f)
	}
	return stored
}

func mergeHotels(stored, incoming []entity.Hotel) []entity.Hotel {
	index := make(map[string]int, len(stored))
	for i, h := range stored {
		index[hotelKey(h)] = i
	}
	for _, h := range incoming {
		key := hotelKey(h)
		if i, ok := index[key]; ok {
			stored[i] = h
			continue
		}
		index[key] = len(stored)
		stored = append(stored, h)
	}
	return stored
}

func mergeTravelers(stored, incoming []entity.Traveler) []entity.Traveler {
	index := make(map[string]int, len(stored))
	for i, t := range stored {
		index[travelerKey(t)] = i
	}
	for _, t := range incoming {
		key := travelerKey(t)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			if t.ID == "" {
				t.ID = stored[i].ID
			}
			if t.Role == "" {
				t.Role = stored[i].Role
			}
			stored[i] = t
			continue
		}
		index[key] = len(stored)
		stored = append(stored, t)
	}
	return stored
}
