// Package git keeps local clones of translated repositories in sync and
// turns translation edits into pushed branches and pull requests.
//
// Repo wraps one clone. Clone, pull and commit run under an exclusive
// per-path lock while configuration reads and tree scans (View) share it, so
// a scan never observes a half-updated tree. Registry guarantees a single Repo
// per absolute path.
//
// The GitProvider interface abstracts PR creation. Implementations exist for
// GitHub, GitLab, and Bitbucket Server in sub-packages. GitProviderFunc is a
// convenience adapter that lets plain functions satisfy the interface.
package git
