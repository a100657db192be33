package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SourceAccommodation SourceKind = "accommodation"
	SourceTransport     SourceKind = "transport"
	SourceActivity      SourceKind = "activity"
	SourceAdHoc         SourceKind = "adhoc"
)

const dateLayout = "2006-01-02"

type (
	// SourceKind identifies which cost source produced a record.
	SourceKind string

	Date struct {
		time.Time
	}

	Currency struct {
		ID                string  `json:"id"`
		Code              string  `json:"code"`
		Name              string  `json:"name"`
		Symbol            string  `json:"symbol"`
		ExchangeRateToUSD float64 `json:"exchange_rate_to_usd"` // units of this currency per 1 USD
	}

	// CostRecord is the normalized shape every fetcher produces.
	CostRecord struct {
		Source     SourceKind `json:"source"`
		EntityID   string     `json:"entity_id"`
		Label      string     `json:"label"`
		Amount     float64    `json:"amount"`
		CurrencyID string     `json:"currency_id"`
		StopID     string     `json:"stop_id,omitempty"`
		Date       *Date      `json:"date,omitempty"`
		Category   Category   `json:"category"`
	}

	ConvertedCostRecord struct {
		CostRecord
		ConvertedAmount  float64   `json:"converted_amount"`
		OriginalCurrency *Currency `json:"original_currency,omitempty"`
		// Unconverted marks a record whose origin currency could not be resolved;
		// ConvertedAmount then carries the raw amount.
		Unconverted bool `json:"unconverted"`
	}

	TripHeader struct {
		ID                  string   `json:"id"`
		UserID              string   `json:"user_id"`
		Name                string   `json:"name"`
		Budget              *float64 `json:"budget"`
		CurrencyCode        string   `json:"currency_code"`
		StoredEstimatedCost *float64 `json:"stored_estimated_cost"`
	}

	TripStop struct {
		ID        string `json:"id"`
		TripID    string `json:"trip_id"`
		City      string `json:"city"`
		StartDate Date   `json:"start_date"`
		EndDate   Date   `json:"end_date"`
	}

	SharedLink struct {
		Token     string     `json:"token"`
		TripID    string     `json:"trip_id"`
		CreatedAt time.Time  `json:"created_at"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}
)

var (
	ErrInvalidRate      = errors.New("exchange rate must be positive")
	ErrEmptyCurrencyID  = errors.New("empty currency id")
	ErrEmptyCode        = errors.New("empty currency code")
	ErrCurrencyNotFound = errors.New("currency not found")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Timestamps with a time part are accepted
// and truncated to the day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Currency) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCurrencyID
	}
	if strings.TrimSpace(c.Code) == "" {
		return ErrEmptyCode
	}
	if c.ExchangeRateToUSD <= 0 {
		return ErrInvalidRate
	}
	return nil
}

// Category returns the fixed budget category for a source kind. Ad-hoc items carry
// their own category and map to Other here.
func (k SourceKind) Category() Category {
	switch k {
	case SourceAccommodation:
		return CategoryAccommodation
	case SourceTransport:
		return CategoryTransport
	case SourceActivity:
		return CategoryActivities
	default:
		return CategoryOther
	}
}

// Sources lists every cost source in aggregation order.
var Sources = []SourceKind{SourceAccommodation, SourceTransport, SourceActivity, SourceAdHoc}
