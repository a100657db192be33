package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, 6, 1), d)

	d, err = ParseDate("2025-06-01T14:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, 6, 1), d)

	_, err = ParseDate("01/06/2025")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}{D: NewDate(2025, 1, 2)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-01-02","z":null}`, string(b))

	var out struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-12-31"}`), &out))
	assert.Equal(t, NewDate(2024, 12, 31), out.D)
}

func TestCurrencyValidate(t *testing.T) {
	good := Currency{ID: "eur", Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRateToUSD: 0.92}
	assert.NoError(t, good.Validate())

	bads := []struct {
		c   Currency
		err error
	}{
		{Currency{Code: "EUR", ExchangeRateToUSD: 1}, ErrEmptyCurrencyID},
		{Currency{ID: "eur", ExchangeRateToUSD: 1}, ErrEmptyCode},
		{Currency{ID: "eur", Code: "EUR"}, ErrInvalidRate},
		{Currency{ID: "eur", Code: "EUR", ExchangeRateToUSD: -1}, ErrInvalidRate},
	}
	for i, tc := range bads {
		assert.ErrorIs(t, tc.c.Validate(), tc.err, "case %d", i)
	}
}

func TestMapCategory(t *testing.T) {
	cases := map[string]Category{
		"Transport":     CategoryTransport,
		" lodging ":     CategoryAccommodation,
		"ACTIVITY":      CategoryActivities,
		"Food & Dining": CategoryFoodAndDining,
		"restaurant":    CategoryFoodAndDining,
		"souvenirs":     CategoryOther,
		"":              CategoryOther,
	}
	for raw, want := range cases {
		assert.Equal(t, want, MapCategory(raw), "MapCategory(%q)", raw)
	}
}

func TestSourceKindCategory(t *testing.T) {
	assert.Equal(t, CategoryAccommodation, SourceAccommodation.Category())
	assert.Equal(t, CategoryTransport, SourceTransport.Category())
	assert.Equal(t, CategoryActivities, SourceActivity.Category())
	assert.Equal(t, CategoryOther, SourceAdHoc.Category())
}

func TestCategoryMapKeysJSON(t *testing.T) {
	snap := NewBudgetSnapshot("t1", Currency{ID: "usd", Code: "USD", ExchangeRateToUSD: 1})
	snap.Categories[CategoryFoodAndDining] = CategoryBudget{Budgeted: 10, Estimated: 12}

	b, err := json.Marshal(snap.Categories)
	require.NoError(t, err)

	var decoded map[string]CategoryBudget
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Len(t, decoded, 5)
	assert.Equal(t, 12.0, decoded["Food & Dining"].Estimated)

	var roundTrip map[Category]CategoryBudget
	require.NoError(t, json.Unmarshal(b, &roundTrip))
	assert.Equal(t, 10.0, roundTrip[CategoryFoodAndDining].Budgeted)
}

func TestNewBudgetSnapshotHasNoNilCollections(t *testing.T) {
	b, err := json.Marshal(NewBudgetSnapshot("t1", Currency{ID: "usd", Code: "USD", ExchangeRateToUSD: 1}))
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"days":[]`)
	assert.Contains(t, s, `"alerts":[]`)
	assert.Contains(t, s, `"cost_items":[]`)
	assert.NotContains(t, s, `"categories":null`)
}

func TestClassifyBudget(t *testing.T) {
	cases := []struct {
		name      string
		budget    *float64
		estimated *float64
		want      BudgetStatus
	}{
		{"no budget", nil, ptr(100), StatusNoBudget},
		{"no budget no estimate", nil, nil, StatusNoBudget},
		{"over by a cent", ptr(1000), ptr(1000.01), StatusOverBudget},
		{"exactly at budget", ptr(1000), ptr(1000), StatusWithinBudget},
		{"no estimate", ptr(1000), nil, StatusWithinBudget},
		{"zero estimate", ptr(1000), ptr(0), StatusWithinBudget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyBudget(tc.budget, tc.estimated))
		})
	}
}

func TestSummarizeTrip(t *testing.T) {
	s := SummarizeTrip(TripHeader{ID: "t1", Name: "Lisbon", Budget: ptr(500), CurrencyCode: "EUR", StoredEstimatedCost: ptr(650)})
	assert.Equal(t, "t1", s.TripID)
	assert.Equal(t, "EUR", s.CurrencyCode)
	assert.Equal(t, StatusOverBudget, s.Status)
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("boom")
	var err error = &TripNotFoundError{TripID: "t9", Err: cause}
	wrapped := fmt.Errorf("compute: %w", err)

	assert.ErrorIs(t, wrapped, ErrTripNotFound)
	assert.ErrorIs(t, wrapped, cause)
	var tnf *TripNotFoundError
	require.ErrorAs(t, wrapped, &tnf)
	assert.Equal(t, "t9", tnf.TripID)

	err = &CurrencyResolutionError{UserID: "u1", FallbackCode: "USD", Err: ErrCurrencyNotFound}
	assert.ErrorIs(t, err, ErrCurrencyResolution)
	assert.ErrorIs(t, err, ErrCurrencyNotFound)
	assert.Contains(t, err.Error(), "u1")
}
