// Package cli defines the Cobra command tree for the composer-yaml CLI.
// The lifecycle commands (activate, deactivate, uninstall) are what the
// host runs from its plugin hooks; the rest are operator tools. Command
// implementations delegate to internal packages for the actual work and
// only handle flag parsing, output formatting, and exit status.
package cli
