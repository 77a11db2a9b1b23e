// Package translation stores per-language translations of a project.
//
// A Store overlays local edits on the translations read from the project's
// language files. Edits are written through a Backend before they become
// visible, survive restarts, and are packaged by Changes into whole language
// files for a pull request. Cache hands out one Store per project.
//
// Language files decode into a Document that keeps key order, nesting and
// number literals, so a rewrite only touches edited values. Flatten and
// Unflatten convert between nested maps and the flat dot-keyed maps the rest
// of the system uses.
package translation
