// Package exec runs external commands (git) with a caller-supplied context.
// A cancelled or expired context kills the process; failures carry the
// combined output so callers can tell a rejected push from a network error.
package exec
