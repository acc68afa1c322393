package electricitymaps

// Endpoints of the Electricity Maps API used by this service.
const (
	PathLatest  = "/v3/carbon-intensity/latest"
	PathHistory = "/v3/carbon-intensity/history"
)

// LatestResponse is the payload of the latest carbon-intensity endpoint.
// CarbonIntensity is in gCO2eq/kWh.
type LatestResponse struct {
	Zone               string  `json:"zone"`
	CarbonIntensity    float64 `json:"carbonIntensity"`
	Datetime           string  `json:"datetime"`
	UpdatedAt          string  `json:"updatedAt"`
	EmissionFactorType string  `json:"emissionFactorType,omitempty"`
	IsEstimated        bool    `json:"isEstimated,omitempty"`
	EstimationMethod   string  `json:"estimationMethod,omitempty"`
}

// HistoryPoint is a single hourly reading from the history endpoint.
type HistoryPoint struct {
	Datetime        string  `json:"datetime"`
	CarbonIntensity float64 `json:"carbonIntensity"`
	UpdatedAt       string  `json:"updatedAt,omitempty"`
}

// HistoryResponse is the payload of the history endpoint.
type HistoryResponse struct {
	Zone    string         `json:"zone"`
	History []HistoryPoint `json:"history"`
}
