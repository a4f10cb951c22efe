// Package postgres implements the internal/store interfaces and the task
// store on PostgreSQL through the pgx database/sql driver. It also embeds
// the goose migrations that create the schema.
package postgres
