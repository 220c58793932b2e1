package api

import (
	"context"
	"errors"
	"fmt"

	"optionflow/internal/calendar"
	"optionflow/internal/model"
)

// Lookup errors.
var (
	ErrNotFound     = errors.New("option contract not found")
	ErrNoExpiration = errors.New("no contracts for expiration")
)

// GetOptionChain fetches the full option chain snapshot for a symbol.
func (c *Client) GetOptionChain(ctx context.Context, symbol string) ([]ChainItem, error) {
	var resp OptionChainResponse
	path := "/v1/marketdata/option-chains/" + symbol + "/options"
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get option chain %s: %w", symbol, err)
	}
	return resp.Data.Items, nil
}

// FindContract scans items for an exact (expiration, strike, type) match.
// First match wins; the triple is expected unique within a chain.
func FindContract(items []ChainItem, expiration string, strike float64, optionType model.OptionType) (*ChainItem, error) {
	for i := range items {
		item := &items[i]
		if item.ExpirationDate == expiration &&
			item.StrikePrice == strike &&
			item.OptionType == string(optionType) {
			return item, nil
		}
	}
	return nil, ErrNotFound
}

// LookupQuote fetches the chain and resolves a single contract with its
// current bid/ask.
func (c *Client) LookupQuote(ctx context.Context, symbol, expiration string, strike float64, optionType model.OptionType) (*ChainItem, error) {
	items, err := c.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return FindContract(items, expiration, strike, optionType)
}

// TodaysChain returns the instruments expiring on today's trading date
// (the 0DTE slice of the chain).
func (c *Client) TodaysChain(ctx context.Context, symbol string) ([]model.Instrument, error) {
	items, err := c.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}

	today := calendar.TodaysTradingDate().Format("2006-01-02")

	var instruments []model.Instrument
	for i := range items {
		if items[i].ExpirationDate == today {
			instruments = append(instruments, items[i].ToInstrument(symbol))
		}
	}

	if len(instruments) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoExpiration, symbol, today)
	}

	return instruments, nil
}
