// Package moderation wraps the external content moderation capability. The
// orchestrator treats any error from a Moderator as fail-open.
package moderation

import "context"

// Result is the moderation verdict for a piece of text.
type Result struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// Moderator inspects text before it is published. Implementations must
// tolerate truncated input; only a prefix needs inspection.
type Moderator interface {
	Moderate(ctx context.Context, text string) (Result, error)
}

// maxInspectBytes bounds how much of the payload is sent for inspection.
const maxInspectBytes = 4096

// inspectPrefix truncates text to the inspected prefix.
func inspectPrefix(text string) string {
	if len(text) > maxInspectBytes {
		return text[:maxInspectBytes]
	}
	return text
}
