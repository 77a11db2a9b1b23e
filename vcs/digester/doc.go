// Package digester calculates SHA256 digests of files in an fs.FS. A combined
// digest over a file set lets callers skip re-extracting messages when the
// source files of a project did not change between syncs.
package digester
