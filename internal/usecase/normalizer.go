package usecase

import (
	"context"
	"strings"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/utils"
)

// Normalizer brings a draft into canonical shape. Normalizing a draft twice
// gives the same result as normalizing it once.
type Normalizer struct {
	carriers    *utils.CarrierTable
	airportRepo repository.AirportRepository
	logger      logger.Logger
}

// NewNormalizer creates a new normalizer. airportRepo may be nil, in which
// case bare airport-code destinations are kept as codes.
func NewNormalizer(carriers *utils.CarrierTable, airportRepo repository.AirportRepository, logger logger.Logger) *Normalizer {
	if carriers == nil {
		carriers = utils.DefaultCarrierTable()
	}
	return &Normalizer{
		carriers:    carriers,
		airportRepo: airportRepo,
		logger:      logger,
	}
}

// LoadCarrierTable appends the airline reference rows to the built-in table
func LoadCarrierTable(ctx context.Context, airlineRepo repository.AirlineRepository, logger logger.Logger) *utils.CarrierTable {
	table := utils.DefaultCarrierTable()
	if airlineRepo == nil {
		return table
	}

	airlines, err := airlineRepo.ListAll(ctx)
	if err != nil {
		logger.Warn("Failed to load airline table, using built-in carriers", "error", err)
		return table
	}

	extra := make([]utils.CarrierEntry, 0, len(airlines))
	for _, a := range airlines {
		extra = append(extra, utils.CarrierEntry{Match: a.Name, Code: a.Code})
	}
	table = table.With(extra...)
	logger.Info("Carrier table loaded", "entries", table.Len())
	return table
}

// NormalizeDraft repairs flight numbers, fills airport codes, resolves a
// bare-code destination to its city and fills a missing topology
func (n *Normalizer) NormalizeDraft(ctx context.Context, draft *entity.TripDraft) *entity.TripDraft {
	if draft == nil {
		return nil
	}
	out := *draft

	out.Destination = strings.TrimSpace(out.Destination)
	if code := utils.AirportCode(out.Destination, ""); code != "" && code == strings.ToUpper(out.Destination) {
		out.Destination = n.cityName(ctx, code, out.Destination)
	}

	out.Flights = make([]entity.Flight, 0, len(draft.Flights))
	for _, f := range draft.Flights {
		out.Flights = append(out.Flights, n.NormalizeFlight(f))
	}
	out.Flights = dedupeFlights(out.Flights)

	if out.AISummary.Topology == "" && len(out.Flights) > 0 {
		out.AISummary.Topology = utils.ClassifyTopology(out.Flights).Label()
	}

	return &out
}

// NormalizeFlight repairs one flight segment
func (n *Normalizer) NormalizeFlight(f entity.Flight) entity.Flight {
	f.Airline = strings.TrimSpace(f.Airline)
	f.FlightNumber = utils.RepairFlightNumber(f.FlightNumber, f.Airline, n.carriers)
	f.DepartureAirport = utils.AirportCode(f.Departure, f.DepartureAirport)
	f.ArrivalAirport = utils.AirportCode(f.Arrival, f.ArrivalAirport)
	return f
}

func (n *Normalizer) cityName(ctx context.Context, code, fallback string) string {
	if n.airportRepo == nil {
		return fallback
	}
	airport, err := n.airportRepo.GetByAirportCode(ctx, code)
	if err != nil || airport == nil || airport.CityName == "" {
		n.logger.Debug("Airport code not resolved", "code", code, "error", err)
		return fallback
	}
	return airport.CityName
}

func dedupeFlights(flights []entity.Flight) []entity.Flight {
	seen := make(map[string]int, len(flights))
	out := flights[:0]
	for _, f := range flights {
		key := flightKey(f)
		if idx, ok := seen[key]; ok {
			out[idx] = f
			continue
		}
		seen[key] = len(out)
		out = append(out, f)
	}
	return out
}
