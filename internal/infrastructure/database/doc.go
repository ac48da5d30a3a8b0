// Package database provides SQLite persistence for Iris Core.
//
// The core keeps a small amount of durable state (todo items) in a
// single SQLite file. The package wraps database/sql with:
//
//   - Connection setup with WAL mode and busy-timeout pragmas
//   - Embedded schema migrations applied at startup
//   - Health checks for the API health endpoint
//
// SQLite is opened with a single-connection pool since it supports
// only one writer; the busy timeout absorbs contention from readers.
package database
