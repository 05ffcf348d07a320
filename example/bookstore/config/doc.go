// Package config provides the configuration of the bookstore example server.
//
// Load reads a YAML file and applies BOOKSTORE_* environment overrides. The factory functions
// build the configured book store (in memory, or PostgreSQL over pgx.Pool, sql.DB or sqlx.DB)
// and the OpenTelemetry providers.
//
// This package is part of the shell (infrastructure) layer of the example.
package config
