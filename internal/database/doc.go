// Package database manages the PostgreSQL connection pool used by the
// journal writers.
package database
