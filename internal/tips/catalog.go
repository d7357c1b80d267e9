// Package tips holds the static per-activity tip content.
package tips

import (
	"math/rand/v2"
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

// Content is either a single positive message or a list of suggestions.
type Content struct {
	Message     string
	Suggestions []string
}

// Positive reports whether the activity is already low-emission.
func (c Content) Positive() bool {
	return len(c.Suggestions) == 0
}

// All returns every message the content can produce.
func (c Content) All() []string {
	if c.Positive() {
		return []string{c.Message}
	}
	return append([]string(nil), c.Suggestions...)
}

// Catalog is a read-only lookup of tip content by category and activity.
type Catalog struct {
	entries map[domain.Category]map[string]Content
}

// NewCatalog builds a Catalog over the provided entries.
func NewCatalog(entries map[domain.Category]map[string]Content) *Catalog {
	return &Catalog{entries: entries}
}

// Default returns the built-in tip catalog.
func Default() *Catalog {
	return NewCatalog(defaultEntries)
}

// Lookup returns the tip content for an activity.
func (c *Catalog) Lookup(category domain.Category, activity string) (Content, bool) {
	content, ok := c.entries[category][activity]
	return content, ok
}

// Response is the realtime payload pushed to a user after logging an activity.
type Response struct {
	UserID        string          `json:"user_id"`
	Category      domain.Category `json:"category"`
	Activity      string          `json:"activity"`
	EmissionLevel string          `json:"emission_level"`
	TipType       domain.TipType  `json:"tip_type"`
	Message       string          `json:"message"`
	AllTips       []string        `json:"all_tips"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Response builds the realtime tip payload for a logged activity. pick selects
// a suggestion index in [0, n); nil uses math/rand.
func (c *Catalog) Response(category domain.Category, activity, userID string, pick func(n int) int) (Response, bool) {
	content, ok := c.Lookup(category, activity)
	if !ok {
		return Response{}, false
	}
	if pick == nil {
		pick = rand.IntN
	}

	resp := Response{
		UserID:    userID,
		Category:  category,
		Activity:  activity,
		AllTips:   content.All(),
		Timestamp: time.Now().UTC(),
	}
	if content.Positive() {
		resp.EmissionLevel = "low"
		resp.TipType = domain.TipPositive
		resp.Message = content.Message
	} else {
		resp.EmissionLevel = "high"
		resp.TipType = domain.TipImprovement
		resp.Message = content.Suggestions[pick(len(content.Suggestions))]
	}
	return resp, true
}

func positive(message string) Content { return Content{Message: message} }

func improve(suggestions ...string) Content { return Content{Suggestions: suggestions} }

var defaultEntries = map[domain.Category]map[string]Content{
	domain.CategoryTransport: {
		"Car (10km)": improve(
			"Consider carpooling or using public transport",
			"Switch to an electric or hybrid vehicle",
			"Combine multiple errands into one trip",
			"Work from home when possible",
		),
		"Bus (10km)":   positive("Great choice! Public transport is already eco-friendly"),
		"Train (10km)": positive("Excellent! Trains are one of the most efficient transport methods"),
		"Bike (10km)":  positive("Perfect! Keep cycling - it's carbon neutral and healthy"),
		"Walk (10km)":  positive("Amazing! Walking produces zero emissions"),
		"Flight (1hr domestic)": improve(
			"Consider train or bus alternatives for shorter distances",
			"Combine business trips to reduce frequency",
			"Choose airlines with carbon offset programs",
			"Pack light to reduce fuel consumption",
		),
		"Flight (international, economy)": improve(
			"Consider longer stays to justify the emissions",
			"Look into carbon offset programs",
			"Choose direct flights when possible",
			"Consider virtual meetings as an alternative",
		),
	},
	domain.CategoryFood: {
		"Beef (200g)": improve(
			"Try plant-based alternatives like lentils or beans",
			"Reduce portion sizes",
			"Choose grass-fed, local beef when possible",
			"Have meat-free days during the week",
		),
		"Chicken (200g)": improve(
			"Good choice compared to beef! Consider free-range options",
			"Try plant-based proteins occasionally",
			"Buy from local, sustainable sources",
		),
		"Pork (200g)": improve(
			"Consider leaner cuts to reduce environmental impact",
			"Try plant-based alternatives",
			"Source from local, sustainable farms",
		),
		"Eggs (2 eggs)": improve(
			"Great protein choice! Consider free-range eggs",
			"Buy from local farms when possible",
		),
		"Vegetarian Meal": positive("Excellent choice! Keep enjoying plant-based meals"),
		"Vegan Meal":      positive("Perfect! Vegan meals have the lowest carbon footprint"),
		"Dairy (250ml milk)": improve(
			"Try oat, almond, or soy milk alternatives",
			"Choose organic, local dairy products",
			"Reduce daily dairy consumption",
		),
	},
	domain.CategoryEnergy: {
		"Electricity (5 kWh)": improve(
			"Switch to LED bulbs",
			"Unplug devices when not in use",
			"Use natural light during the day",
			"Consider solar panels",
		),
		"Electricity (10 kWh)": improve(
			"Invest in energy-efficient appliances",
			"Use a programmable thermostat",
			"Switch to renewable energy providers",
			"Improve home insulation",
		),
		"Gas Heater (1 hr)": improve(
			"Lower the thermostat by 1-2 degrees",
			"Wear warmer clothes indoors",
			"Improve home insulation",
			"Consider a heat pump",
		),
		"Air Conditioner (1 hr)": improve(
			"Set temperature to 24°C or higher",
			"Use fans to circulate air",
			"Close curtains during hot days",
			"Improve home insulation",
		),
		"LED Lights (1 hr)": positive("Great! LEDs are already very efficient"),
		"Boil kettle (1x)": improve(
			"Only boil the water you need",
			"Use a thermal carafe to keep water hot",
			"Consider an efficient electric kettle",
		),
	},
	domain.CategoryWaste: {
		"Landfill Waste (1 bag)": improve(
			"Reduce packaging by buying in bulk",
			"Compost organic waste",
			"Recycle everything possible",
			"Choose products with minimal packaging",
		),
		"Recycled Waste (1 bag)":  positive("Good job recycling! Keep it up"),
		"Composted Waste (1 bag)": positive("Excellent! Composting is the best waste option"),
		"Plastic Bottle Thrown": improve(
			"Always recycle plastic bottles",
			"Switch to a reusable water bottle",
			"Choose glass or aluminum alternatives",
		),
		"Plastic Bottle Recycled": improve(
			"Great job recycling! Consider a reusable bottle",
			"Look for refillable options",
		),
	},
	domain.CategoryWater: {
		"Shower (10 mins)": improve(
			"Take shorter showers (5-7 minutes)",
			"Install a low-flow showerhead",
			"Turn off water while soaping",
			"Consider shower timers",
		),
		"Bath": improve(
			"Take showers instead of baths",
			"Share bath water with family members",
			"Use bath water for garden irrigation",
		),
		"Tap left running (1 min)": improve(
			"Always turn off taps when not in use",
			"Fix leaky faucets immediately",
			"Install water-saving aerators",
		),
		"Toilet Flush": improve(
			"Install a dual-flush toilet",
			"Put a water bottle in old toilet tanks",
			"Fix running toilets promptly",
		),
		"Washing Machine (1 load)": improve(
			"Wash in cold water when possible",
			"Only run full loads",
			"Use eco-friendly detergents",
			"Air dry clothes instead of using a dryer",
		),
		"Dishwasher (1 load)": improve(
			"Only run when fully loaded",
			"Use eco-mode settings",
			"Air dry dishes instead of heat drying",
			"Scrape dishes instead of pre-rinsing",
		),
	},
	domain.CategoryShopping: {
		"New T-shirt": improve(
			"Buy from sustainable fashion brands",
			"Shop second-hand or vintage",
			"Choose quality items that last longer",
			"Consider clothing swaps with friends",
		),
		"New Jeans": improve(
			"Look for sustainably made denim",
			"Buy second-hand jeans",
			"Take care of jeans to extend their life",
			"Choose timeless styles over trends",
		),
		"Smartphone": improve(
			"Keep your current phone longer",
			"Buy refurbished phones",
			"Recycle old phones properly",
			"Choose phones with replaceable parts",
		),
		"Laptop": improve(
			"Buy refurbished or second-hand",
			"Keep your current laptop longer",
			"Choose energy-efficient models",
			"Recycle old electronics properly",
		),
		"Plastic Bag Used": improve(
			"Always bring reusable bags",
			"Refuse single-use bags",
			"Reuse plastic bags multiple times",
		),
		"Plastic Bag Reused": positive("Good job reusing! Keep using reusable bags"),
	},
}
