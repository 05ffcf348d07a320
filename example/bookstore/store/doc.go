// Package store provides the book storage of the bookstore example.
//
// Memory keeps the catalog in process. Postgres keeps it in a PostgreSQL table and can be
// created from a pgx Pool, a sql.DB or a sqlx.DB; SQL statements are built with goqu.
package store
