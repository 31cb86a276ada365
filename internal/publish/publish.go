// Package publish coordinates a publish attempt as a saga: quota consume
// first, then rate limiting, moderation and persistence, with a compensating
// refund on every failure branch after the consume.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mdbin/mdbin/internal/docstore"
	"github.com/mdbin/mdbin/internal/metrics"
	"github.com/mdbin/mdbin/internal/moderation"
	"github.com/mdbin/mdbin/internal/quota"
	"github.com/mdbin/mdbin/internal/ratelimit"
	"github.com/mdbin/mdbin/internal/settings"
	log "github.com/sirupsen/logrus"
)

// User-facing failure modes. Collaborator outages are never among them.
var (
	// ErrPayloadTooLarge rejects oversized payloads before any quota cost.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrRateLimited rejects a publish that exceeded the per-minute window.
	ErrRateLimited = errors.New("rate limited: too many publish requests, retry shortly")
)

// ContentBlockedError carries the moderation verdict for a rejected publish.
type ContentBlockedError struct {
	Reason string
}

func (e *ContentBlockedError) Error() string {
	if e == nil || e.Reason == "" {
		return "content blocked"
	}
	return "content blocked: " + e.Reason
}

// QuotaService is the slice of the quota service the saga needs.
type QuotaService interface {
	ConsumeQuota(ctx context.Context, identity, operationType string, count int64, documentID string) (quota.QuotaInfo, error)
	RefundQuota(ctx context.Context, identity string, count int64) error
	AttachDocument(ctx context.Context, identity, documentID string) error
}

// DocumentStore persists the published artifact.
type DocumentStore interface {
	Create(ctx context.Context, id, title, content string) error
}

// Result is a successful publish.
type Result struct {
	DocumentID string
	Quota      quota.QuotaInfo
}

// Config carries the static publish parameters.
type Config struct {
	// MaxPayloadBytes is the hard ceiling on markdown size.
	MaxPayloadBytes int
	// StageTimeout bounds each collaborator call (limiter, moderation).
	StageTimeout time.Duration
}

const (
	defaultMaxPayloadBytes = 256 << 10
	defaultStageTimeout    = 10 * time.Second
	// refundTimeout bounds the compensating refund write. It is detached
	// from the request context so client cancellation cannot leave a
	// refund pending.
	refundTimeout = 5 * time.Second
)

// Publisher orchestrates publish attempts.
type Publisher struct {
	quota        QuotaService
	limiter      ratelimit.Limiter
	moderator    moderation.Moderator
	docs         DocumentStore
	maxPayload   int
	stageTimeout time.Duration
}

// NewPublisher constructs a Publisher. The limiter and moderator may be nil;
// their stages are then skipped.
func NewPublisher(quotaSvc QuotaService, limiter ratelimit.Limiter, moderator moderation.Moderator, docs DocumentStore, cfg Config) *Publisher {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = defaultMaxPayloadBytes
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = defaultStageTimeout
	}
	return &Publisher{
		quota:        quotaSvc,
		limiter:      limiter,
		moderator:    moderator,
		docs:         docs,
		maxPayload:   cfg.MaxPayloadBytes,
		stageTimeout: cfg.StageTimeout,
	}
}

// Publish runs the full saga for one request. Every failure after the quota
// consume refunds exactly one unit; each failure path executes at most once
// per request.
func (p *Publisher) Publish(ctx context.Context, identity, title, content string) (*Result, error) {
	if p == nil || p.quota == nil || p.docs == nil {
		return nil, errors.New("publish: publisher not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if len(content) > p.maxPayload {
		metrics.PublishOutcomes.WithLabelValues("payload_too_large").Inc()
		return nil, ErrPayloadTooLarge
	}

	info, errConsume := p.quota.ConsumeQuota(ctx, identity, quota.OpPublish, 1, "")
	if errConsume != nil {
		metrics.PublishOutcomes.WithLabelValues("insufficient_quota").Inc()
		return nil, errConsume
	}

	if !p.allowPublish(ctx, identity) {
		p.refund(identity)
		metrics.PublishOutcomes.WithLabelValues("rate_limited").Inc()
		return nil, ErrRateLimited
	}

	if blocked := p.moderate(ctx, identity, content); blocked != nil {
		p.refund(identity)
		metrics.PublishOutcomes.WithLabelValues("content_blocked").Inc()
		return nil, blocked
	}

	documentID, errID := docstore.NewDocumentID()
	if errID == nil {
		errID = p.docs.Create(ctx, documentID, title, content)
	}
	if errID != nil {
		log.WithError(errID).Error("publish: persist document failed")
		p.refund(identity)
		metrics.PublishOutcomes.WithLabelValues("persistence_failure").Inc()
		return nil, fmt.Errorf("save document: %w", errID)
	}

	if errAttach := p.quota.AttachDocument(ctx, identity, documentID); errAttach != nil {
		// The log stays advisory; the publish already succeeded.
		log.WithError(errAttach).Warnf("publish: attach document failed (identity=%s doc=%s)", identity, documentID)
	}

	metrics.PublishOutcomes.WithLabelValues("success").Inc()
	return &Result{DocumentID: documentID, Quota: info}, nil
}

// allowPublish consults the secondary limiter. Limiter failure fails open.
func (p *Publisher) allowPublish(ctx context.Context, identity string) bool {
	if p.limiter == nil {
		return true
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	allowed, errAllow := p.limiter.Allow(stageCtx, identity+":"+quota.OpPublish)
	if errAllow != nil {
		metrics.RateLimitSkipped.Inc()
		log.WithError(errAllow).Warnf("publish: rate limiter unavailable, failing open (identity=%s)", identity)
		return true
	}
	return allowed
}

// moderate consults the moderation collaborator. It returns a non-nil
// *ContentBlockedError only for an explicit unsafe verdict; moderator
// failure fails open.
func (p *Publisher) moderate(ctx context.Context, identity, content string) error {
	if p.moderator == nil {
		return nil
	}
	if !settings.DBConfigBool(settings.ModerationEnabledKey, settings.DefaultModerationEnabled) {
		return nil
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	verdict, errModerate := p.moderator.Moderate(stageCtx, content)
	if errModerate != nil {
		metrics.ModerationSkipped.Inc()
		log.WithError(errModerate).Warnf("publish: moderation unavailable, failing open (identity=%s)", identity)
		return nil
	}
	if !verdict.Safe {
		return &ContentBlockedError{Reason: verdict.Reason}
	}
	return nil
}

// refund restores the single consumed unit. A refund failure is swallowed
// and only surfaced through logs and metrics; the response for the failing
// stage is already decided.
func (p *Publisher) refund(identity string) {
	ctx, cancel := context.WithTimeout(context.Background(), refundTimeout)
	defer cancel()

	if errRefund := p.quota.RefundQuota(ctx, identity, 1); errRefund != nil {
		metrics.RefundFailures.Inc()
		log.WithError(errRefund).Warnf("publish: refund failed (identity=%s)", identity)
	}
}
