package core

// BudgetStatus is the three-state classification used by the trip list.
type BudgetStatus string

const (
	StatusOverBudget   BudgetStatus = "over_budget"
	StatusWithinBudget BudgetStatus = "within_budget"
	StatusNoBudget     BudgetStatus = "no_budget"
)

// CategoryBudget holds the planned and estimated spend of one category, both in the
// snapshot's target currency.
type CategoryBudget struct {
	Budgeted  float64 `json:"budgeted"`
	Estimated float64 `json:"estimated"`
}

// DayBreakdown is the spend attributed to one trip stop.
type DayBreakdown struct {
	DayIndex  int     `json:"day_index"`
	Date      Date    `json:"date"`
	City      string  `json:"city"`
	Budgeted  float64 `json:"budgeted"`
	Estimated float64 `json:"estimated"`
}

// CostsBySource groups converted records by the source that produced them.
type CostsBySource struct {
	Accommodations []ConvertedCostRecord `json:"accommodations"`
	Transport      []ConvertedCostRecord `json:"transport"`
	Activities     []ConvertedCostRecord `json:"activities"`
	CostItems      []ConvertedCostRecord `json:"cost_items"`
}

// BudgetSnapshot is the aggregated budget view of a single trip.
type BudgetSnapshot struct {
	TripID             string                      `json:"trip_id"`
	TargetCurrency     Currency                    `json:"target_currency"`
	StoredBudget       *float64                    `json:"stored_budget"`
	StoredCurrencyCode string                      `json:"stored_currency_code"`
	Budget             *float64                    `json:"budget"` // StoredBudget in TargetCurrency
	Categories         map[Category]CategoryBudget `json:"categories"`
	Days               []DayBreakdown              `json:"days"`
	Alerts             []string                    `json:"alerts"`
	TotalEstimatedCost float64                     `json:"total_estimated_cost"`
	// EstimatedFromStored is set when no source produced any cost and the trip's
	// own stored estimate is shown instead.
	EstimatedFromStored bool          `json:"estimated_from_stored"`
	Costs               CostsBySource `json:"costs"`
}

// TripBudgetSummary is one row of the multi-trip list.
type TripBudgetSummary struct {
	TripID        string       `json:"trip_id"`
	Name          string       `json:"name"`
	Budget        *float64     `json:"budget"`
	EstimatedCost *float64     `json:"estimated_cost"`
	CurrencyCode  string       `json:"currency_code"`
	Status        BudgetStatus `json:"status"`
}

// NewBudgetSnapshot returns a snapshot with every collection initialized so that a
// degraded result never serializes null collections.
func NewBudgetSnapshot(tripID string, target Currency) BudgetSnapshot {
	cats := make(map[Category]CategoryBudget, len(Categories))
	for _, c := range Categories {
		cats[c] = CategoryBudget{}
	}
	return BudgetSnapshot{
		TripID:         tripID,
		TargetCurrency: target,
		Categories:     cats,
		Days:           []DayBreakdown{},
		Alerts:         []string{},
		Costs: CostsBySource{
			Accommodations: []ConvertedCostRecord{},
			Transport:      []ConvertedCostRecord{},
			Activities:     []ConvertedCostRecord{},
			CostItems:      []ConvertedCostRecord{},
		},
	}
}

// Add appends a record to the group matching its source.
func (c *CostsBySource) Add(r ConvertedCostRecord) {
	switch r.Source {
	case SourceAccommodation:
		c.Accommodations = append(c.Accommodations, r)
	case SourceTransport:
		c.Transport = append(c.Transport, r)
	case SourceActivity:
		c.Activities = append(c.Activities, r)
	default:
		c.CostItems = append(c.CostItems, r)
	}
}

// ClassifyBudget derives the list-view status from stored trip fields only.
func ClassifyBudget(budget, estimated *float64) BudgetStatus {
	if budget == nil {
		return StatusNoBudget
	}
	if estimated != nil && *estimated > *budget {
		return StatusOverBudget
	}
	return StatusWithinBudget
}

// SummarizeTrip builds the list row for a trip header.
func SummarizeTrip(h TripHeader) TripBudgetSummary {
	return TripBudgetSummary{
		TripID:        h.ID,
		Name:          h.Name,
		Budget:        h.Budget,
		EstimatedCost: h.StoredEstimatedCost,
		CurrencyCode:  h.CurrencyCode,
		Status:        ClassifyBudget(h.Budget, h.StoredEstimatedCost),
	}
}
