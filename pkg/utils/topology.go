package utils

import (
	"regexp"
	"strings"

	"tripmail-service/internal/domain/entity"
)

// Itinerary shapes
const (
	TopologyNone      = ""
	TopologyOneWay    = "One-Way"
	TopologyRoundTrip = "Round-Trip"
	// TopologyMultiCity also covers open-jaw itineraries
	TopologyMultiCity = "Multi-City"
)

var (
	parenAirportCode = regexp.MustCompile(`\(([A-Za-z]{3})\)`)
	bareAirportCode  = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Topology is the classified shape of a flight sequence
type Topology struct {
	Kind string
	// Route is set for multi-city itineraries, e.g. "JFK -> LHR -> TLV"
	Route string
	// Airports is the visit order with consecutive duplicates removed
	Airports []string
}

// Label renders the topology for display
func (t Topology) Label() string {
	if t.Kind == TopologyMultiCity && t.Route != "" {
		return t.Kind + ": " + t.Route
	}
	return t.Kind
}

// AirportCode returns the explicit code when present, otherwise a three-letter
// code in parentheses inside the description ("San Francisco (SFO)"),
// otherwise the description itself when it is a bare code.
func AirportCode(description, explicit string) string {
	if code := strings.ToUpper(strings.TrimSpace(explicit)); code != "" {
		return NormalizeAirportCode(code)
	}
	if m := parenAirportCode.FindStringSubmatch(description); m != nil {
		return strings.ToUpper(m[1])
	}
	desc := strings.TrimSpace(description)
	if bareAirportCode.MatchString(desc) {
		return desc
	}
	return ""
}

// NormalizeAirportCode converts 4-letter US ICAO codes (e.g., "KJFK") to 3-letter codes ("JFK").
// Other codes are returned as is. Converts to uppercase.
func NormalizeAirportCode(code string) string {
	upperCode := strings.ToUpper(strings.TrimSpace(code))
	if len(upperCode) == 4 && strings.HasPrefix(upperCode, "K") {
		return upperCode[1:]
	}
	return upperCode
}

// ClassifyTopology derives the itinerary shape from an ordered flight list
func ClassifyTopology(flights []entity.Flight) Topology {
	if len(flights) == 0 {
		return Topology{Kind: TopologyNone}
	}

	var visits []string
	push := func(code string) {
		if code == "" {
			return
		}
		if len(visits) > 0 && visits[len(visits)-1] == code {
			return
		}
		visits = append(visits, code)
	}
	for _, f := range flights {
		push(AirportCode(f.Departure, f.DepartureAirport))
		push(AirportCode(f.Arrival, f.ArrivalAirport))
	}

	if len(flights) == 1 {
		return Topology{Kind: TopologyOneWay, Airports: visits}
	}

	first := flights[0]
	last := flights[len(flights)-1]
	origin := AirportCode(first.Departure, first.DepartureAirport)
	final := AirportCode(last.Arrival, last.ArrivalAirport)
	if origin != "" && origin == final {
		return Topology{Kind: TopologyRoundTrip, Airports: visits}
	}

	distinct := make(map[string]struct{}, len(visits))
	for _, code := range visits {
		distinct[code] = struct{}{}
	}
	if len(distinct) <= 2 {
		return Topology{Kind: TopologyRoundTrip, Airports: visits}
	}

	return Topology{Kind: TopologyMultiCity, Route: routeString(visits), Airports: visits}
}

// routeString shows every stop for up to two intermediate stops and elides
// the middle beyond that
func routeString(visits []string) string {
	if len(visits) <= 4 {
		return strings.Join(visits, " -> ")
	}
	return visits[0] + " -> ... -> " + visits[len(visits)-1]
}
