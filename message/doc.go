// Package message extracts translatable source strings from a project tree.
//
// A Factory maps the messages format declared in lyra.yml to an Adapter. Each
// adapter matches its globs (doublestar syntax, relative to the project path)
// against an fs.FS, parses the files in path order and returns messages in
// file order. Extraction is all or nothing: one unreadable file or one
// duplicate id fails the whole project.
package message
