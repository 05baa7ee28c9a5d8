package usecase

import (
	"testing"

	"tripmail-service/internal/domain/entity"
)

func cancelledStatus() *entity.TripStatus {
	s := entity.TripStatusCancelled
	return &s
}

func storedTrip() *entity.Trip {
	return &entity.Trip{
		ID:                 "tel-aviv-2026",
		Destination:        "Tel Aviv",
		Dates:              "Jan 08, 2026 - Jan 20, 2026",
		TripTitleDashboard: "Tel Aviv, January 2026",
		Status:             entity.TripStatusActive,
		Flights: []entity.Flight{
			{Airline: "United", FlightNumber: "UA 84", Departure: "Newark (EWR)", Arrival: "Tel Aviv (TLV)", Duration: "10h"},
		},
		Hotels: []entity.Hotel{
			{Name: "Dan Tel Aviv", CheckIn: "Jan 08, 2026", CheckOut: "Jan 12, 2026"},
		},
		Travelers: []entity.Traveler{
			{ID: "fm-ann", Name: "Ann Smith", Role: "adult"},
		},
		Version: 4,
	}
}

func TestMergeDraftNewTrip(t *testing.T) {
	trip := MergeDraft(nil, &entity.TripDraft{Destination: "Rome", Dates: "May 1, 2026"})
	if trip.Status != entity.TripStatusActive || trip.Destination != "Rome" {
		t.Errorf("trip = %+v", trip)
	}
}

func TestMergeDraftUnionsCollections(t *testing.T) {
	existing := storedTrip()
	draft := &entity.TripDraft{
		Flights: []entity.Flight{
			{Airline: "United", FlightNumber: "UA84", Departure: "Newark (EWR)", Arrival: "Tel Aviv (TLV)", Duration: "10h 20m"},
			{Airline: "United", FlightNumber: "UA 91", Departure: "Tel Aviv (TLV)", Arrival: "Newark (EWR)"},
		},
		Hotels: []entity.Hotel{
			{Name: "dan tel aviv", CheckIn: "jan 08, 2026", CheckOut: "Jan 13, 2026"},
			{Name: "King David", CheckIn: "Jan 13, 2026"},
		},
		Travelers: []entity.Traveler{
			{Name: "ann  smith"},
			{Name: "Ben Smith"},
		},
	}

	merged := MergeDraft(existing, draft)

	if len(merged.Flights) != 2 || merged.Flights[0].Duration != "10h 20m" {
		t.Errorf("flights = %+v", merged.Flights)
	}
	if len(merged.Hotels) != 2 || merged.Hotels[0].CheckOut != "Jan 13, 2026" {
		t.Errorf("hotels = %+v", merged.Hotels)
	}
	if len(merged.Travelers) != 2 {
		t.Fatalf("travelers = %+v", merged.Travelers)
	}
	if merged.Travelers[0].ID != "fm-ann" || merged.Travelers[0].Role != "adult" {
		t.Errorf("matched traveler lost id/role: %+v", merged.Travelers[0])
	}

	// Scalars the draft leaves empty keep their stored values
	if merged.Destination != "Tel Aviv" || merged.TripTitleDashboard != "Tel Aviv, January 2026" {
		t.Errorf("scalars = %q / %q", merged.Destination, merged.TripTitleDashboard)
	}
	if merged.Version != 4 {
		t.Errorf("Version = %d, want stored version carried", merged.Version)
	}

	if len(existing.Flights) != 1 || existing.Flights[0].Duration != "10h" || len(existing.Hotels) != 1 {
		t.Error("MergeDraft modified the existing trip")
	}
}

func TestMergeDraftFlightsWithoutNumber(t *testing.T) {
	existing := &entity.Trip{Flights: []entity.Flight{
		{Airline: "El Al", Date: "Jan 08, 2026", Departure: "JFK", Arrival: "TLV"},
	}}
	draft := &entity.TripDraft{Flights: []entity.Flight{
		{Airline: "el al", Date: "Jan 08, 2026", Departure: "JFK", Arrival: "TLV", Duration: "10h 5m"},
		{Airline: "El Al", Date: "Jan 20, 2026", Departure: "TLV", Arrival: "JFK"},
	}}

	merged := MergeDraft(existing, draft)
	if len(merged.Flights) != 2 || merged.Flights[0].Duration != "10h 5m" {
		t.Errorf("flights = %+v", merged.Flights)
	}
}

func TestMergeDraftStatusIsSticky(t *testing.T) {
	tests := []struct {
		name       string
		stored     entity.TripStatus
		draft      *entity.TripStatus
		wantStatus entity.TripStatus
	}{
		{"confirmation keeps cancelled", entity.TripStatusCancelled, nil, entity.TripStatusCancelled},
		{"stated cancellation applies", entity.TripStatusActive, cancelledStatus(), entity.TripStatusCancelled},
		{"confirmation keeps active", entity.TripStatusActive, nil, entity.TripStatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := storedTrip()
			existing.Status = tt.stored
			if tt.stored == entity.TripStatusCancelled {
				existing.Cancellation = &entity.Cancellation{Reason: "by owner"}
				existing.Credits = []entity.TravelCredit{{Issuer: "United", Amount: 412.5}}
			}

			merged := MergeDraft(existing, &entity.TripDraft{Status: tt.draft, Dates: "Jan 09, 2026 - Jan 20, 2026"})
			if merged.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", merged.Status, tt.wantStatus)
			}
			if tt.stored == entity.TripStatusCancelled {
				if merged.Cancellation == nil || merged.Cancellation.Reason != "by owner" {
					t.Errorf("Cancellation = %+v", merged.Cancellation)
				}
				if len(merged.Credits) != 1 {
					t.Errorf("Credits = %+v", merged.Credits)
				}
			}
			if merged.Dates != "Jan 09, 2026 - Jan 20, 2026" {
				t.Errorf("Dates = %q", merged.Dates)
			}
		})
	}
}

func TestMergeDraftReplacesCreditsWhenStated(t *testing.T) {
	existing := storedTrip()
	existing.Credits = []entity.TravelCredit{{Issuer: "United", Amount: 100}}

	merged := MergeDraft(existing, &entity.TripDraft{
		Credits: []entity.TravelCredit{{Issuer: "United", Amount: 250, Currency: "USD"}},
	})
	if len(merged.Credits) != 1 || merged.Credits[0].Amount != 250 {
		t.Errorf("Credits = %+v", merged.Credits)
	}
}

func TestMergeDraftFlightDates(t *testing.T) {
	ua84 := func(date, duration string) entity.Flight {
		return entity.Flight{Airline: "United", FlightNumber: "UA 84", Date: date, Departure: "EWR", Arrival: "TLV", Duration: duration}
	}

	tests := []struct {
		name      string
		stored    []entity.Flight
		incoming  []entity.Flight
		wantDates []string
		wantDur   string
	}{
		{"same number on another day", []entity.Flight{ua84("Jan 08, 2026", "10h")}, []entity.Flight{ua84("Jan 15, 2026", "")}, []string{"Jan 08, 2026", "Jan 15, 2026"}, "10h"},
		{"same day in another format", []entity.Flight{ua84("Jan 08, 2026", "10h")}, []entity.Flight{ua84("2026-01-08", "10h 20m")}, []string{"2026-01-08"}, "10h 20m"},
		{"stored leg without date", []entity.Flight{ua84("", "10h")}, []entity.Flight{ua84("Jan 08, 2026", "10h 20m")}, []string{"Jan 08, 2026"}, "10h 20m"},
		{"draft leg without date", []entity.Flight{ua84("Jan 08, 2026", "10h")}, []entity.Flight{ua84("", "10h 20m")}, []string{"Jan 08, 2026"}, "10h 20m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeDraft(&entity.Trip{Flights: tt.stored}, &entity.TripDraft{Flights: tt.incoming})
			if len(merged.Flights) != len(tt.wantDates) {
				t.Fatalf("flights = %+v", merged.Flights)
			}
			for i, want := range tt.wantDates {
				if merged.Flights[i].Date != want {
					t.Errorf("flight %d date = %q, want %q", i, merged.Flights[i].Date, want)
				}
			}
			if merged.Flights[0].Duration != tt.wantDur {
				t.Errorf("Duration = %q, want %q", merged.Flights[0].Duration, tt.wantDur)
			}
		})
	}
}

func TestDedupeFlightsKeepsRepeatedRoute(t *testing.T) {
	flights := []entity.Flight{
		{FlightNumber: "BA 117", Date: "Mar 02, 2026", Departure: "LHR", Arrival: "JFK"},
		{FlightNumber: "BA117", Date: "Mar 02, 2026", Departure: "LHR", Arrival: "JFK", Duration: "8h"},
		{FlightNumber: "BA 117", Date: "Mar 09, 2026", Departure: "LHR", Arrival: "JFK"},
	}
	got := dedupeFlights(flights)
	if len(got) != 2 || got[0].Duration != "8h" || got[1].Date != "Mar 09, 2026" {
		t.Errorf("dedupeFlights = %+v", got)
	}
}
