package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tripbudget/internal/core"
	"tripbudget/internal/store"

	_ "modernc.org/sqlite"
)

const sqliteDSNOptions = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// SQLiteRepository implements store.Store on a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + sqliteDSNOptions
	}
	return dbPath + "?" + sqliteDSNOptions
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetTripHeader implements store.TripStore
func (r *SQLiteRepository) GetTripHeader(ctx context.Context, tripID string) (core.TripHeader, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, budget, currency_code, total_estimated_cost
		FROM trips
		WHERE id = ? AND deleted_at IS NULL`, tripID)

	h, err := scanTripHeader(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TripHeader{}, store.ErrNotFound
	}
	if err != nil {
		return core.TripHeader{}, fmt.Errorf("get trip %s: %w", tripID, err)
	}
	return h, nil
}

// ListTrips implements store.TripStore
func (r *SQLiteRepository) ListTrips(ctx context.Context, userID string) ([]core.TripHeader, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, budget, currency_code, total_estimated_cost
		FROM trips
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []core.TripHeader
	for rows.Next() {
		h, err := scanTripHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, h)
	}
	return trips, rows.Err()
}

// ListStops implements store.TripStore
func (r *SQLiteRepository) ListStops(ctx context.Context, tripID string) ([]core.TripStop, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trip_id, city_name, start_date, end_date
		FROM trip_stops
		WHERE trip_id = ?
		ORDER BY start_date, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}
	defer rows.Close()

	var stops []core.TripStop
	for rows.Next() {
		var (
			s          core.TripStop
			start, end string
		)
		if err := rows.Scan(&s.ID, &s.TripID, &s.City, &start, &end); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		if s.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("stop %s start date: %w", s.ID, err)
		}
		if s.EndDate, err = core.ParseDate(end); err != nil {
			return nil, fmt.Errorf("stop %s end date: %w", s.ID, err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// ListCategoryBudgets implements store.TripStore
func (r *SQLiteRepository) ListCategoryBudgets(ctx context.Context, tripID string) (map[core.Category]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, amount FROM trip_category_budgets WHERE trip_id = ?`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	defer rows.Close()

	budgets := make(map[core.Category]float64)
	for rows.Next() {
		var (
			category string
			amount   float64
		)
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		budgets[core.MapCategory(category)] += amount
	}
	return budgets, rows.Err()
}

// ListCurrencies implements store.CurrencyStore
func (r *SQLiteRepository) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, name, symbol, exchange_rate_to_usd
		FROM currencies
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []core.Currency
	for rows.Next() {
		var c core.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Symbol, &c.ExchangeRateToUSD); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// GetCurrencyByID implements store.CurrencyStore
func (r *SQLiteRepository) GetCurrencyByID(ctx context.Context, id string) (core.Currency, error) {
	return r.getCurrency(ctx, "id = ?", id)
}

// GetCurrencyByCode implements store.CurrencyStore
func (r *SQLiteRepository) GetCurrencyByCode(ctx context.Context, code string) (core.Currency, error) {
	return r.getCurrency(ctx, "code = ?", code)
}

func (r *SQLiteRepository) getCurrency(ctx context.Context, where string, arg string) (core.Currency, error) {
	var c core.Currency
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, symbol, exchange_rate_to_usd
		FROM currencies WHERE `+where, arg).
		Scan(&c.ID, &c.Code, &c.Name, &c.Symbol, &c.ExchangeRateToUSD)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Currency{}, store.ErrNotFound
	}
	if err != nil {
		return core.Currency{}, fmt.Errorf("get currency %s: %w", arg, err)
	}
	return c, nil
}

// UpsertCurrencies implements store.CurrencyWriter
func (r *SQLiteRepository) UpsertCurrencies(ctx context.Context, currencies []core.Currency) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO currencies (id, code, name, symbol, exchange_rate_to_usd, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			symbol = excluded.symbol,
			exchange_rate_to_usd = excluded.exchange_rate_to_usd,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("prepare currency upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range currencies {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("currency %q: %w", c.Code, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, strings.ToUpper(c.Code), c.Name, c.Symbol, c.ExchangeRateToUSD); err != nil {
			return fmt.Errorf("upsert currency %s: %w", c.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit currencies: %w", err)
	}

	slog.InfoContext(ctx, "Currencies saved to SQLite", "count", len(currencies))
	return nil
}

// GetPreferredCurrencyID implements store.UserStore
func (r *SQLiteRepository) GetPreferredCurrencyID(ctx context.Context, userID string) (string, error) {
	var id sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT preferred_currency_id FROM users WHERE id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preferred currency: %w", err)
	}
	return id.String, nil
}

// SetPreferredCurrencyID implements store.UserStore
func (r *SQLiteRepository) SetPreferredCurrencyID(ctx context.Context, userID, currencyID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, preferred_currency_id, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			preferred_currency_id = excluded.preferred_currency_id,
			updated_at = CURRENT_TIMESTAMP`, userID, currencyID)
	if err != nil {
		return fmt.Errorf("set preferred currency: %w", err)
	}
	return nil
}

// ListAccommodations implements store.CostSourceStore
func (r *SQLiteRepository) ListAccommodations(ctx context.Context, tripID string) ([]store.AccommodationRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.stop_id, a.name, a.provider_name, s.city_name,
		       a.total_cost, a.price_per_night, a.nights, a.currency_id, a.check_in
		FROM accommodations a
		LEFT JOIN trip_stops s ON s.id = a.stop_id
		WHERE a.trip_id = ?
		ORDER BY a.check_in, a.id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	defer rows.Close()

	var out []store.AccommodationRow
	for rows.Next() {
		var (
			row                                store.AccommodationRow
			stopID, name, provider, city, curr sql.NullString
			checkIn                            sql.NullString
			totalCost, pricePerNight           sql.NullFloat64
		)
		if err := rows.Scan(&row.ID, &stopID, &name, &provider, &city,
			&totalCost, &pricePerNight, &row.Nights, &curr, &checkIn); err != nil {
			return nil, fmt.Errorf("scan accommodation: %w", err)
		}
		row.StopID = nullString(stopID)
		row.Name = nullString(name)
		row.ProviderName = nullString(provider)
		row.CityName = nullString(city)
		row.TotalCost = nullFloat(totalCost)
		row.PricePerNight = nullFloat(pricePerNight)
		row.CurrencyID = nullString(curr)
		row.CheckIn = nullDate(checkIn)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListTransportLegs implements store.CostSourceStore
func (r *SQLiteRepository) ListTransportLegs(ctx context.Context, tripID string) ([]store.TransportLegRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, f.city_name, d.city_name, t.mode, t.cost, t.currency_id, t.departure_date
		FROM transport_legs t
		LEFT JOIN trip_stops f ON f.id = t.from_stop_id
		LEFT JOIN trip_stops d ON d.id = t.to_stop_id
		WHERE t.trip_id = ?
		ORDER BY t.departure_date, t.id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list transport legs: %w", err)
	}
	defer rows.Close()

	var out []store.TransportLegRow
	for rows.Next() {
		var (
			row                          store.TransportLegRow
			from, to, mode, curr, depart sql.NullString
			cost                         sql.NullFloat64
		)
		if err := rows.Scan(&row.ID, &from, &to, &mode, &cost, &curr, &depart); err != nil {
			return nil, fmt.Errorf("scan transport leg: %w", err)
		}
		row.FromCity = nullString(from)
		row.ToCity = nullString(to)
		row.Mode = nullString(mode)
		row.Cost = nullFloat(cost)
		row.CurrencyID = nullString(curr)
		row.DepartureDate = nullDate(depart)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListScheduledActivities implements store.CostSourceStore
func (r *SQLiteRepository) ListScheduledActivities(ctx context.Context, stopIDs []string) ([]store.ScheduledActivityRow, error) {
	if len(stopIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(stopIDs)), ",")
	args := make([]any, len(stopIDs))
	for i, id := range stopIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT sa.id, sa.stop_id, a.name, a.price, sa.cost_override,
		       COALESCE(sa.currency_id, a.currency_id), sa.scheduled_date
		FROM stop_activities sa
		LEFT JOIN activities a ON a.id = sa.activity_id
		WHERE sa.stop_id IN (`+placeholders+`)
		ORDER BY sa.scheduled_date, sa.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled activities: %w", err)
	}
	defer rows.Close()

	var out []store.ScheduledActivityRow
	for rows.Next() {
		var (
			row              store.ScheduledActivityRow
			name, curr, date sql.NullString
			price, override  sql.NullFloat64
		)
		if err := rows.Scan(&row.ID, &row.StopID, &name, &price, &override, &curr, &date); err != nil {
			return nil, fmt.Errorf("scan scheduled activity: %w", err)
		}
		row.ActivityName = nullString(name)
		row.ActivityPrice = nullFloat(price)
		row.CostOverride = nullFloat(override)
		row.CurrencyID = nullString(curr)
		row.ScheduledDate = nullDate(date)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListCostItems implements store.CostSourceStore
func (r *SQLiteRepository) ListCostItems(ctx context.Context, tripID string) ([]store.CostItemRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stop_id, category, description, amount, currency_id, date
		FROM cost_items
		WHERE trip_id = ?
		ORDER BY date, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list cost items: %w", err)
	}
	defer rows.Close()

	var out []store.CostItemRow
	for rows.Next() {
		var (
			row                      store.CostItemRow
			stopID, desc, curr, date sql.NullString
		)
		if err := rows.Scan(&row.ID, &stopID, &row.Category, &desc, &row.Amount, &curr, &date); err != nil {
			return nil, fmt.Errorf("scan cost item: %w", err)
		}
		row.StopID = nullString(stopID)
		row.Description = nullString(desc)
		row.CurrencyID = nullString(curr)
		row.Date = nullDate(date)
		out = append(out, row)
	}
	return out, rows.Err()
}

// CreateSharedLink implements store.SharedLinkStore
func (r *SQLiteRepository) CreateSharedLink(ctx context.Context, link core.SharedLink) error {
	var expires any
	if link.ExpiresAt != nil {
		expires = link.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shared_links (token, trip_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		link.Token, link.TripID, link.CreatedAt.UTC().Format(time.RFC3339Nano), expires)
	if err != nil {
		return fmt.Errorf("create shared link: %w", err)
	}
	return nil
}

// GetSharedLink implements store.SharedLinkStore
func (r *SQLiteRepository) GetSharedLink(ctx context.Context, token string) (core.SharedLink, error) {
	var (
		link      core.SharedLink
		created   string
		expiresAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT token, trip_id, created_at, expires_at
		FROM shared_links WHERE token = ?`, token).
		Scan(&link.Token, &link.TripID, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SharedLink{}, store.ErrNotFound
	}
	if err != nil {
		return core.SharedLink{}, fmt.Errorf("get shared link: %w", err)
	}

	if link.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return core.SharedLink{}, fmt.Errorf("shared link created_at: %w", err)
	}
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, expiresAt.String)
		if err != nil {
			return core.SharedLink{}, fmt.Errorf("shared link expires_at: %w", err)
		}
		link.ExpiresAt = &t
	}
	return link, nil
}

// DeleteSharedLink implements store.SharedLinkStore
func (r *SQLiteRepository) DeleteSharedLink(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shared_links WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete shared link: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTripHeader(s scanner) (core.TripHeader, error) {
	var (
		h                 core.TripHeader
		budget, estimated sql.NullFloat64
	)
	if err := s.Scan(&h.ID, &h.UserID, &h.Name, &budget, &h.CurrencyCode, &estimated); err != nil {
		return core.TripHeader{}, err
	}
	h.Budget = nullFloat(budget)
	h.StoredEstimatedCost = nullFloat(estimated)
	return h, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// nullDate parses a stored date; unparseable values read as absent.
func nullDate(ns sql.NullString) *core.Date {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	d, err := core.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &d
}
