package dto

// RecordPricesRequest is the body of POST /v1/stations/:id/prices.
// Prices maps fuel type id → price string; "" and "—" are skipped.
type RecordPricesRequest struct {
	Prices map[string]string `json:"prices" validate:"required,min=1"`
	Source string            `json:"source" validate:"omitempty,max=40"`
}

type ObservationResponse struct {
	ID         uint    `json:"id"`
	StationID  uint    `json:"station_id"`
	FuelTypeID string  `json:"fuel_type_id"`
	Price      float64 `json:"price"`
	Source     string  `json:"source"`
	UserID     *uint   `json:"user_id,omitempty"`
	ObservedAt string  `json:"observed_at"`
}

type SkippedEntry struct {
	FuelTypeID string `json:"fuel_type_id"`
	Reason     string `json:"reason"`
}

type FailedEntry struct {
	FuelTypeID string `json:"fuel_type_id"`
	Value      string `json:"value"`
	Error      string `json:"error"`
}

// BatchResult reports the outcome of every entry of a price batch.
type BatchResult struct {
	Accepted []ObservationResponse `json:"accepted"`
	Skipped  []SkippedEntry        `json:"skipped"`
	Failed   []FailedEntry         `json:"failed"`
}

type HistoryFilter struct {
	FuelTypeID string `form:"fuel_type_id" validate:"required,max=60"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// OCRSuggestion is returned by POST /v1/stations/:id/photo. Suggested maps
// the station's fuel ids (in fuel config order) onto candidates; the user
// confirms before anything is recorded.
type OCRSuggestion struct {
	StationID  uint              `json:"station_id"`
	Upload     string            `json:"upload"`
	Candidates []string          `json:"candidates"`
	Suggested  map[string]string `json:"suggested"`
	Order      []string          `json:"order"`
}
