package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Category groups activities that emit carbon in a similar way.
type Category string

const (
	CategoryTransport Category = "Transport"
	CategoryFood      Category = "Food"
	CategoryEnergy    Category = "Energy"
	CategoryWaste     Category = "Waste"
	CategoryWater     Category = "Water"
	CategoryShopping  Category = "Shopping"
)

// ValidationError reports an input that violates a domain rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// emissionCatalog maps each category to its activity labels and their fixed
// emission value in kg CO2e.
var emissionCatalog = map[Category]map[string]float64{
	CategoryTransport: {
		"Car (10km)":                      2.4,
		"Bus (10km)":                      1.0,
		"Train (10km)":                    0.4,
		"Bike (10km)":                     0,
		"Walk (10km)":                     0,
		"Flight (1hr domestic)":           90,
		"Flight (international, economy)": 250,
	},
	CategoryFood: {
		"Beef (200g)":        5.4,
		"Chicken (200g)":     1.4,
		"Pork (200g)":        1.7,
		"Eggs (2 eggs)":      0.4,
		"Vegetarian Meal":    0.7,
		"Vegan Meal":         0.5,
		"Dairy (250ml milk)": 0.8,
	},
	CategoryEnergy: {
		"Electricity (5 kWh)":    2.1,
		"Electricity (10 kWh)":   4.2,
		"Gas Heater (1 hr)":      2.0,
		"Air Conditioner (1 hr)": 1.5,
		"LED Lights (1 hr)":      0.01,
		"Boil kettle (1x)":       0.015,
	},
	CategoryWaste: {
		"Landfill Waste (1 bag)":  2.5,
		"Recycled Waste (1 bag)":  0.5,
		"Composted Waste (1 bag)": 0.1,
		"Plastic Bottle Thrown":   0.08,
		"Plastic Bottle Recycled": 0.02,
	},
	CategoryWater: {
		"Shower (10 mins)":         0.5,
		"Bath":                     1.0,
		"Tap left running (1 min)": 0.05,
		"Toilet Flush":             0.01,
		"Washing Machine (1 load)": 0.6,
		"Dishwasher (1 load)":      0.7,
	},
	CategoryShopping: {
		"New T-shirt":        7,
		"New Jeans":          33,
		"Smartphone":         70,
		"Laptop":             300,
		"Plastic Bag Used":   0.03,
		"Plastic Bag Reused": 0,
	},
}

// Categories lists every known category in a stable order.
func Categories() []Category {
	out := make([]Category, 0, len(emissionCatalog))
	for c := range emissionCatalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCategory resolves a category name, ignoring case.
func ParseCategory(raw string) (Category, error) {
	trimmed := strings.TrimSpace(raw)
	for c := range emissionCatalog {
		if strings.EqualFold(string(c), trimmed) {
			return c, nil
		}
	}
	return "", invalid("category", "%q is not a valid category", raw)
}

// ActivityLabels returns the activity labels known for a category, sorted.
func ActivityLabels(category Category) []string {
	labels := make([]string, 0, len(emissionCatalog[category]))
	for label := range emissionCatalog[category] {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// EmissionFor looks up the fixed emission value for a category/activity pair.
func EmissionFor(category Category, label string) (float64, error) {
	activities, ok := emissionCatalog[category]
	if !ok {
		return 0, invalid("category", "%q is not a valid category", category)
	}
	value, ok := activities[label]
	if !ok {
		return 0, invalid("activity", "%q is not a valid activity for category %s", label, category)
	}
	return value, nil
}
