package moderation

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

// Fallback tries the primary moderator and falls back to the secondary when
// the primary is unavailable. Only an error from both propagates.
type Fallback struct {
	Primary   Moderator
	Secondary Moderator
}

// Moderate implements Moderator.
func (f *Fallback) Moderate(ctx context.Context, text string) (Result, error) {
	if f == nil || (f.Primary == nil && f.Secondary == nil) {
		return Result{}, errors.New("moderation: no moderator configured")
	}

	if f.Primary != nil {
		result, errPrimary := f.Primary.Moderate(ctx, text)
		if errPrimary == nil {
			return result, nil
		}
		if f.Secondary == nil {
			return Result{}, errPrimary
		}
		log.WithError(errPrimary).Warn("moderation: primary failed, using fallback")
	}

	return f.Secondary.Moderate(ctx, text)
}
