// Package repository holds the postgres persistence layer. Every
// repository takes a Querier so the reconciliation executor can bind
// the same repositories to one *sql.Tx and keep each reconciliation
// atomic.
package repository

import "database/sql"

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}
