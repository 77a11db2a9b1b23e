// Package pipeline orchestrates translation projects. For
// each configured project it keeps the clone current,
// reads the repository lyra.yml, extracts source messages
// with the adapter chosen by the project, loads the
// translation store and, on request, packages pending
// edits into a pull request.
//
// A sync walks NotCloned, Cloning, ConfigLoaded,
// MessagesExtracted, TranslationsLoaded and ends Ready or
// Failed. Data is only served from Ready; otherwise
// callers get ErrNotReady, never an empty result.
package pipeline
