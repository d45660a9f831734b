package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type FuelTypeDTO struct {
	ID    string `json:"id"    validate:"required,max=60"`
	Label string `json:"label" validate:"max=80"`
}

// CreateStationRequest is the body of POST /v1/stations. Lat/Lng are pointers
// so a missing coordinate is distinguishable from 0.
type CreateStationRequest struct {
	Name       string        `json:"name"        validate:"max=200"`
	Brand      *string       `json:"brand"       validate:"omitempty,max=60"`
	Lat        *float64      `json:"lat"         validate:"required"`
	Lng        *float64      `json:"lng"         validate:"required"`
	Address    *string       `json:"address"     validate:"omitempty,max=300"`
	FuelConfig []FuelTypeDTO `json:"fuel_config" validate:"omitempty,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// ResolvedPrice is one fuel line of a station. Price is nil when no
// observation exists for the fuel type.
type ResolvedPrice struct {
	FuelTypeID string   `json:"fuel_type_id"`
	Label      string   `json:"label"`
	Price      *float64 `json:"price"`
	UpdatedAt  *string  `json:"updated_at,omitempty"`
}

type StationResponse struct {
	ID         uint          `json:"id"`
	Name       string        `json:"name"`
	Brand      *string       `json:"brand"`
	Lat        float64       `json:"lat"`
	Lng        float64       `json:"lng"`
	Address    *string       `json:"address,omitempty"`
	FuelConfig []FuelTypeDTO `json:"fuel_config"`
}

// StationWithPrices is the map/listing view of a station.
type StationWithPrices struct {
	ID      uint            `json:"id"`
	Name    string          `json:"name"`
	Brand   *string         `json:"brand"`
	Lat     float64         `json:"lat"`
	Lng     float64         `json:"lng"`
	Address *string         `json:"address,omitempty"`
	Prices  []ResolvedPrice `json:"prices"`
}

type ResyncResponse struct {
	Updated int `json:"updated"`
}
