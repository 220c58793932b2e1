// Package journal persists execution attempts and market-data rows to
// PostgreSQL. Writers accept entries on a buffered channel, batch them, and
// flush on size or interval. Enqueueing never blocks the hot path: entries
// are dropped when the buffer is full.
package journal
