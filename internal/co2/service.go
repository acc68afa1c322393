package co2

import (
	"context"
	"strconv"

	em "github.com/hkoenig/gridcarbon/internal/electricitymaps"
)

// Defaults for the gas-heating comparison endpoints.
const (
	DefaultEfficiency = 0.85  // fraction of fuel energy delivered as heat
	DefaultGasFactor  = 0.201 // kgCO2 per kWh of natural gas burned
)

// Service derives CO2 metrics from the carbon-intensity feed. All state
// lives in the underlying client's cache; the computations themselves are
// pure.
type Service struct {
	client *em.Client
}

func NewService(client *em.Client) *Service {
	return &Service{client: client}
}

// LatestReading is the current grid intensity in kg alongside the raw
// upstream payload.
type LatestReading struct {
	KgCO2PerKWh float64           `json:"kgCO2_per_kWh"`
	Raw         em.LatestResponse `json:"raw"`
}

// Latest returns the current carbon intensity for the configured location.
func (s *Service) Latest(ctx context.Context) (LatestReading, error) {
	raw, err := em.Fetch[em.LatestResponse](ctx, s.client, em.PathLatest, nil)
	if err != nil {
		return LatestReading{}, err
	}
	return LatestReading{
		KgCO2PerKWh: raw.CarbonIntensity / 1000,
		Raw:         raw,
	}, nil
}

// HistoryPoint is one hourly intensity reading in both units.
type HistoryPoint struct {
	Datetime    string  `json:"datetime"`
	GCO2PerKWh  float64 `json:"gCO2_per_kWh"`
	KgCO2PerKWh float64 `json:"kgCO2_per_kWh"`
}

// HistorySummary aggregates the last N hourly readings.
type HistorySummary struct {
	Count          int            `json:"count"`
	AvgKgCO2PerKWh float64        `json:"avg_kgCO2_per_kWh"`
	Points         []HistoryPoint `json:"points"`
}

// History returns the last hours hourly readings and their average
// intensity. The upstream may return more points than requested; only the
// newest hours points are kept so Count always matches the request window.
func (s *Service) History(ctx context.Context, hours int) (HistorySummary, error) {
	raw, err := em.Fetch[em.HistoryResponse](ctx, s.client, em.PathHistory, map[string]string{
		"pastHours": strconv.Itoa(hours),
	})
	if err != nil {
		return HistorySummary{}, err
	}

	history := raw.History
	if len(history) > hours {
		history = history[len(history)-hours:]
	}

	points := make([]HistoryPoint, 0, len(history))
	var sum float64
	for _, p := range history {
		sum += p.CarbonIntensity
		points = append(points, HistoryPoint{
			Datetime:    p.Datetime,
			GCO2PerKWh:  p.CarbonIntensity,
			KgCO2PerKWh: p.CarbonIntensity / 1000,
		})
	}

	summary := HistorySummary{
		Count:  len(points),
		Points: points,
	}
	if len(points) > 0 {
		summary.AvgKgCO2PerKWh = sum / float64(len(points)) / 1000
	}
	return summary, nil
}

// HeatPumpInput is the electrical consumption to price in CO2.
type HeatPumpInput struct {
	KWh float64 `json:"kWh"`
}

// HeatPumpResult is the CO2 cost of running a heat pump on the current grid mix.
type HeatPumpResult struct {
	Input             HeatPumpInput `json:"input"`
	FactorKgCO2PerKWh float64       `json:"factor_kgCO2_per_kWh"`
	CO2Kg             float64       `json:"co2_kg"`
	SourceUpdatedAt   string        `json:"sourceUpdatedAt"`
}

// HeatPump prices the given electrical consumption against the current
// grid intensity.
func (s *Service) HeatPump(ctx context.Context, in HeatPumpInput) (HeatPumpResult, error) {
	latest, err := s.Latest(ctx)
	if err != nil {
		return HeatPumpResult{}, err
	}
	return HeatPumpResult{
		Input:             in,
		FactorKgCO2PerKWh: latest.KgCO2PerKWh,
		CO2Kg:             in.KWh * latest.KgCO2PerKWh,
		SourceUpdatedAt:   latest.Raw.UpdatedAt,
	}, nil
}

// AlternativeInput describes gas heating producing the same heat output.
// Efficiency and GasFactor must be populated (defaults applied by the caller).
type AlternativeInput struct {
	HeatKWh    float64 `json:"heat_kWh"`
	Efficiency float64 `json:"efficiency"`
	GasFactor  float64 `json:"gasFactor_kg_per_kWh"`
}

// AlternativeResult is the fuel demand and CO2 cost of the gas alternative.
type AlternativeResult struct {
	Input           AlternativeInput `json:"input"`
	RequiredFuelKWh float64          `json:"requiredFuel_kWh"`
	CO2Kg           float64          `json:"co2_kg"`
}

// Alternative computes the fuel needed to deliver the requested heat at the
// given burner efficiency and its CO2 cost. No upstream data is involved.
func Alternative(in AlternativeInput) AlternativeResult {
	fuel := in.HeatKWh / in.Efficiency
	return AlternativeResult{
		Input:           in,
		RequiredFuelKWh: fuel,
		CO2Kg:           fuel * in.GasFactor,
	}
}

// SavingsInput compares a heat pump at the given COP against gas heating.
type SavingsInput struct {
	HeatKWh    float64 `json:"heat_kWh"`
	COP        float64 `json:"cop"`
	Efficiency float64 `json:"efficiency"`
	GasFactor  float64 `json:"gasFactor_kg_per_kWh"`
}

// SavingsFactors echoes the conversion factors used for the comparison.
type SavingsFactors struct {
	ElectricityKgCO2PerKWh float64 `json:"electricity_kgCO2_per_kWh"`
	Efficiency             float64 `json:"efficiency"`
	GasFactorKgPerKWh      float64 `json:"gasFactor_kg_per_kWh"`
}

// SavingsResult is the CO2 comparison between heat pump and gas heating.
type SavingsResult struct {
	Input           SavingsInput   `json:"input"`
	Factors         SavingsFactors `json:"factors"`
	ElecKWh         float64        `json:"elec_kWh"`
	CO2WPKg         float64        `json:"co2_wp_kg"`
	CO2GasKg        float64        `json:"co2_gas_kg"`
	SavingsKg       float64        `json:"savings_kg"`
	SourceUpdatedAt string         `json:"sourceUpdatedAt"`
}

// Savings compares delivering the requested heat with a heat pump on the
// current grid mix against burning gas for it.
func (s *Service) Savings(ctx context.Context, in SavingsInput) (SavingsResult, error) {
	latest, err := s.Latest(ctx)
	if err != nil {
		return SavingsResult{}, err
	}

	elecKWh := in.HeatKWh / in.COP
	co2WP := elecKWh * latest.KgCO2PerKWh

	gas := Alternative(AlternativeInput{
		HeatKWh:    in.HeatKWh,
		Efficiency: in.Efficiency,
		GasFactor:  in.GasFactor,
	})

	return SavingsResult{
		Input: in,
		Factors: SavingsFactors{
			ElectricityKgCO2PerKWh: latest.KgCO2PerKWh,
			Efficiency:             in.Efficiency,
			GasFactorKgPerKWh:      in.GasFactor,
		},
		ElecKWh:         elecKWh,
		CO2WPKg:         co2WP,
		CO2GasKg:        gas.CO2Kg,
		SavingsKg:       gas.CO2Kg - co2WP,
		SourceUpdatedAt: latest.Raw.UpdatedAt,
	}, nil
}
