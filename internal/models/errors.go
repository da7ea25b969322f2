package models

import "errors"

var (
	// ErrUnknownSymbol is returned when a symbol is absent from the current table.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrNoData means neither a live fetch nor any cache produced a table.
	ErrNoData = errors.New("no price data available")
)
