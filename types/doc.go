// Package types defines shared types used across the warmline service:
// the structured error taxonomy, summarizer payloads, and notification
// bus events.
package types
