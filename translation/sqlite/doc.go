// Package sqlite persists translation edits in a SQLite
// database so pending work survives restarts.
//
// The driver is the pure Go modernc.org/sqlite; statements
// are built with squirrel.
package sqlite
