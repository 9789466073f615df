// Package approval implements the maker/checker workflow: makers raise
// submissions, checkers (or managers) approve or reject them.
//
// Two rules are enforced at the storage layer so no handler can bypass
// them: a submission is decided at most once, and never by its own maker.
package approval
