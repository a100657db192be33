// Package ratesfile loads currency reference data from a YAML file and watches it
// for edits.
//
// File format:
//
//	currencies:
//	  - id: c-usd
//	    code: USD
//	    name: US Dollar
//	    symbol: $
//	    exchange_rate_to_usd: 1
package ratesfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tripbudget/internal/core"
)

type document struct {
	Currencies []entry `yaml:"currencies"`
}

type entry struct {
	ID                string  `yaml:"id"`
	Code              string  `yaml:"code"`
	Name              string  `yaml:"name"`
	Symbol            string  `yaml:"symbol"`
	ExchangeRateToUSD float64 `yaml:"exchange_rate_to_usd"`
}

// Load reads and validates a rates file.
func Load(path string) ([]core.Currency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	currencies, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return currencies, nil
}

// Parse decodes rates file content. Unknown fields, invalid rates and duplicate ids
// or codes are rejected. A missing id defaults to the lower-cased code.
func Parse(data []byte) ([]core.Currency, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	var (
		errs       []string
		currencies = make([]core.Currency, 0, len(doc.Currencies))
		ids        = make(map[string]bool)
		codes      = make(map[string]bool)
	)
	for i, e := range doc.Currencies {
		c := core.Currency{
			ID:                strings.TrimSpace(e.ID),
			Code:              strings.ToUpper(strings.TrimSpace(e.Code)),
			Name:              strings.TrimSpace(e.Name),
			Symbol:            e.Symbol,
			ExchangeRateToUSD: e.ExchangeRateToUSD,
		}
		if c.ID == "" && c.Code != "" {
			c.ID = strings.ToLower(c.Code)
		}
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("currencies[%d] (%s): %v", i, c.Code, err))
			continue
		}
		if ids[c.ID] {
			errs = append(errs, fmt.Sprintf("currencies[%d]: duplicate id %q", i, c.ID))
			continue
		}
		if codes[c.Code] {
			errs = append(errs, fmt.Sprintf("currencies[%d]: duplicate code %q", i, c.Code))
			continue
		}
		ids[c.ID] = true
		codes[c.Code] = true
		currencies = append(currencies, c)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid rates file:\n- %s", strings.Join(errs, "\n- "))
	}
	return currencies, nil
}
