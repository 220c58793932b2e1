// Package model defines shared data types for the option trading assistant.
//
// Conventions:
//   - Prices, strikes and greeks: float64, as decoded from the brokerage API
//   - Absent numeric fields: nil pointers, rendered as "N/A" for display
//   - Feed timestamps: int64 milliseconds since Unix epoch on the wire,
//     RFC 3339 UTC strings after normalization
package model
