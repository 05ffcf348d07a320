// Package adapters lets the PostgreSQL book store run on pgx, database/sql or sqlx
// through one small interface.
package adapters
