package core

import (
	"fmt"
	"strings"
)

// Category is the closed set of budget categories.
type Category int

const (
	CategoryTransport Category = iota
	CategoryAccommodation
	CategoryActivities
	CategoryFoodAndDining
	CategoryOther
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryTransport,
	CategoryAccommodation,
	CategoryActivities,
	CategoryFoodAndDining,
	CategoryOther,
}

var categoryNames = map[Category]string{
	CategoryTransport:     "Transport",
	CategoryAccommodation: "Accommodation",
	CategoryActivities:    "Activities",
	CategoryFoodAndDining: "Food & Dining",
	CategoryOther:         "Other",
}

// rawCategories maps lower-cased source strings to categories.
var rawCategories = map[string]Category{
	"transport":       CategoryTransport,
	"transportation":  CategoryTransport,
	"travel":          CategoryTransport,
	"taxi":            CategoryTransport,
	"flight":          CategoryTransport,
	"accommodation":   CategoryAccommodation,
	"accommodations":  CategoryAccommodation,
	"lodging":         CategoryAccommodation,
	"hotel":           CategoryAccommodation,
	"activities":      CategoryActivities,
	"activity":        CategoryActivities,
	"entertainment":   CategoryActivities,
	"sightseeing":     CategoryActivities,
	"food & dining":   CategoryFoodAndDining,
	"food and dining": CategoryFoodAndDining,
	"food":            CategoryFoodAndDining,
	"dining":          CategoryFoodAndDining,
	"meals":           CategoryFoodAndDining,
	"restaurant":      CategoryFoodAndDining,
	"restaurants":     CategoryFoodAndDining,
	"other":           CategoryOther,
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryOther]
}

// MapCategory converts a raw category string to a Category, defaulting to Other.
func MapCategory(raw string) Category {
	if c, ok := rawCategories[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	s := string(b)
	for cat, name := range categoryNames {
		if name == s {
			*c = cat
			return nil
		}
	}
	if mapped, ok := rawCategories[strings.ToLower(strings.TrimSpace(s))]; ok {
		*c = mapped
		return nil
	}
	return fmt.Errorf("unknown category %q", s)
}
