// Package commitmsg generates and parses the list of translations a commit
// carries. Entries ("language:messageId") are encoded between marker lines so
// a pushed branch records which local edits it submitted.
package commitmsg
