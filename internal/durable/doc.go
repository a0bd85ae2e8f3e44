// Package durable writes manifest files only when their content changes.
// A write first makes sure the parent directory exists, compares the new
// bytes with what is on disk, and retries transient failures a bounded
// number of times with a fixed delay.
package durable
