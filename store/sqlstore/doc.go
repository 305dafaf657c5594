// Package sqlstore persists accounts, the quiz catalog, sessions and
// attempts with sqlx on SQLite (mattn/go-sqlite3) or PostgreSQL (pgx).
//
// Schemas are embedded per dialect and applied with golang-migrate. A
// submission is one transaction whose conditional update on the session
// cursor is the only arbiter between concurrent submits.
package sqlstore
