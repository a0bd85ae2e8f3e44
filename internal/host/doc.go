// Package host is the boundary to the dependency manager that loads the
// plugin. It answers where the host keeps its manifest and turns a freshly
// written manifest into an immutable [Composite] snapshot, in place of
// mutating the host's live configuration objects.
package host
