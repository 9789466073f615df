// Package database manages the SQLite connection and schema migrations
// for eMart Core.
//
// SQLite is configured for a single writer with WAL mode, which matches
// the write volume of a single-store inventory workflow. Migrations are
// embedded into the binary and applied on startup.
package database
