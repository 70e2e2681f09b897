// Package migrations embeds the SQL schema for the SQLite storage medium.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// InitialSchema is the file name of the first migration.
const InitialSchema = "001_initial_schema.up.sql"
