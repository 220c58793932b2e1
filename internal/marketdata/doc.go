// Package marketdata gathers greeks and quote events for a set of option
// contracts and joins them into display-ready rows. One feed connection is
// opened per Collect call and always torn down before returning.
package marketdata
