// Package sqlite provides a SQLite-backed gateway audit store.
package sqlite
