// Package fuelconfig holds the brand → fuel template table used to derive a
// station's fuel configuration when none is supplied explicitly.
package fuelconfig

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"github.com/spf13/viper"
)

// BuiltinVersion identifies the compiled-in table.
const BuiltinVersion = "2024.1"

// Generic is the fallback template for unknown or missing brands.
var Generic = []model.FuelType{
	{ID: "regular", Label: "Regular"},
	{ID: "premium", Label: "Premium"},
	{ID: "diesel", Label: "Diesel"},
}

var builtin = map[string][]model.FuelType{
	"SOCAR": {
		{ID: "n95", Label: "NANO 95"},
		{ID: "n92", Label: "NANO 92"},
		{ID: "diesel", Label: "NANO DT"},
		{ID: "lpg", Label: "LPG"},
	},
	"GULF": {
		{ID: "g98", Label: "G-Force 98"},
		{ID: "g95", Label: "G-Force 95"},
		{ID: "reg", Label: "Euro Reg"},
		{ID: "diesel", Label: "G-Force D"},
	},
	"WISSOL": {
		{ID: "eko_super", Label: "EKO SUPER"},
		{ID: "eko_premium", Label: "EKO PREMIUM"},
		{ID: "eko_regular", Label: "EKO REGULAR"},
		{ID: "diesel", Label: "EKO DIESEL"},
		{ID: "EUdiesel", Label: "EURO DIESEL"},
	},
	"LUKOIL": {
		{ID: "ecto_100", Label: "100 ECTO"},
		{ID: "ecto_95", Label: "95 ECTO"},
		{ID: "ecto_92", Label: "92 ECTO"},
		{ID: "diesel", Label: "D ECTO"},
	},
	"ROMPETROL": {
		{ID: "efix_98", Label: "98 EFIX"},
		{ID: "efix_95", Label: "95 EFIX"},
		{ID: "efix_92", Label: "92 EFIX"},
		{ID: "diesel", Label: "D EFIX"},
		{ID: "LPDdiesel", Label: "LPD EFIX"},
	},
}

// Table maps normalized brand names to ordered fuel templates.
// It is read-only after construction and safe for concurrent use.
type Table struct {
	Version  string
	brands   map[string][]model.FuelType
	fallback []model.FuelType
	order    []string
}

// Builtin returns the compiled-in table.
func Builtin() *Table {
	t := &Table{Version: BuiltinVersion, brands: make(map[string][]model.FuelType, len(builtin)), fallback: Generic}
	for _, b := range []string{"SOCAR", "GULF", "WISSOL", "LUKOIL", "ROMPETROL"} {
		t.brands[b] = builtin[b]
		t.order = append(t.order, b)
	}
	return t
}

// fileTable is the on-disk shape accepted by Load:
//
//	version: "2025.2"
//	fallback: [{id: regular, label: Regular}, ...]
//	brands:
//	  socar: [{id: n95, label: NANO 95}, ...]
type fileTable struct {
	Version  string                      `mapstructure:"version"`
	Fallback []model.FuelType            `mapstructure:"fallback"`
	Brands   map[string][]model.FuelType `mapstructure:"brands"`
}

// Load reads a YAML or JSON template file. An empty path returns Builtin().
// A file without a fallback keeps the generic one.
func Load(path string) (*Table, error) {
	if path == "" {
		return Builtin(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fuelconfig: read %s: %w", path, err)
	}

	var ft fileTable
	if err := v.Unmarshal(&ft); err != nil {
		return nil, fmt.Errorf("fuelconfig: decode %s: %w", path, err)
	}
	if len(ft.Brands) == 0 {
		return nil, errors.New("fuelconfig: template file defines no brands")
	}

	t := &Table{Version: ft.Version, brands: make(map[string][]model.FuelType, len(ft.Brands)), fallback: Generic}
	if t.Version == "" {
		t.Version = "file"
	}
	if len(ft.Fallback) > 0 {
		if err := Validate(ft.Fallback); err != nil {
			return nil, fmt.Errorf("fuelconfig: fallback: %w", err)
		}
		t.fallback = ft.Fallback
	}
	for brand, fuels := range ft.Brands {
		if err := Validate(fuels); err != nil {
			return nil, fmt.Errorf("fuelconfig: brand %q: %w", brand, err)
		}
		key := Normalize(brand)
		t.brands[key] = fuels
		t.order = append(t.order, key)
	}
	// Longest name first so "GULF EXPRESS" beats "GULF"; ties alphabetical.
	sort.Slice(t.order, func(i, j int) bool {
		if len(t.order[i]) != len(t.order[j]) {
			return len(t.order[i]) > len(t.order[j])
		}
		return t.order[i] < t.order[j]
	})
	return t, nil
}

// Normalize maps a free-text brand to its lookup key.
func Normalize(brand string) string {
	return strings.ToUpper(strings.TrimSpace(brand))
}

// Has reports whether brand has a dedicated template.
func (t *Table) Has(brand string) bool {
	_, ok := t.brands[Normalize(brand)]
	return ok
}

// For returns a copy of the template for brand, or the fallback.
func (t *Table) For(brand string) []model.FuelType {
	fuels, ok := t.brands[Normalize(brand)]
	if !ok {
		fuels = t.fallback
	}
	out := make([]model.FuelType, len(fuels))
	copy(out, fuels)
	return out
}

// DetectBrand finds a known brand inside a free-text station name,
// e.g. "Wissol - Vake" → "WISSOL". Brands are tried in a fixed order.
// Returns "" when none matches.
func (t *Table) DetectBrand(name string) string {
	upper := strings.ToUpper(name)
	for _, b := range t.order {
		if strings.Contains(upper, b) {
			return b
		}
	}
	return ""
}

// Validate checks that every fuel type has an id and ids are unique.
func Validate(fuels []model.FuelType) error {
	seen := make(map[string]bool, len(fuels))
	for i, f := range fuels {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return fmt.Errorf("fuel type #%d has an empty id", i+1)
		}
		if seen[id] {
			return fmt.Errorf("duplicate fuel type id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// Equal reports whether two configurations have the same entries in the same order.
func Equal(a, b []model.FuelType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
