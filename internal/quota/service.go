package quota

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mdbin/mdbin/internal/settings"
	log "github.com/sirupsen/logrus"
)

// Well-known operation tags. The accounting itself treats the tag as opaque.
const (
	OpPublish = "publish"
	OpView    = "view"
)

// defaultResetWindow is the rolling quota window length.
const defaultResetWindow = 24 * time.Hour

// QuotaInfo is the caller-facing snapshot of one identity's budget.
type QuotaInfo struct {
	Identity  string    `json:"identity"`
	Remaining int64     `json:"remaining"`
	Total     int64     `json:"total"`
	ResetTime time.Time `json:"reset_time"`
	IsNewUser bool      `json:"is_new_user"`
}

// UsageStats aggregates today's activity for one identity.
type UsageStats struct {
	Quota              QuotaInfo      `json:"quota"`
	OperationsToday    int64          `json:"operations_today"`
	OperationBreakdown []OperationSum `json:"operation_breakdown"`
	UsagePercentage    int            `json:"usage_percentage"`
}

// InsufficientQuotaError signals a consume attempt that exceeded the
// remaining budget. No mutation happened.
type InsufficientQuotaError struct {
	Quota    QuotaInfo
	Required int64
}

func (e *InsufficientQuotaError) Error() string {
	return fmt.Sprintf("insufficient quota: %d remaining, %d required, resets at %s",
		e.Quota.Remaining, e.Required, e.Quota.ResetTime.Format(time.RFC3339))
}

// errShortfall marks a conditional decrement that found too little budget.
var errShortfall = errors.New("quota: shortfall")

// Config carries the static quota parameters.
type Config struct {
	// DailyLimit is the per-identity operation budget per window.
	DailyLimit int64
	// ResetWindow is the rolling window length; defaults to 24h.
	ResetWindow time.Duration
}

// Service implements quota business logic: lazy initialization, rolling-window
// reset, consume with audit logging, refund, and derived statistics.
type Service struct {
	store       *Store
	dailyLimit  int64
	resetWindow time.Duration
	now         func() time.Time
}

// NewService constructs a quota Service.
func NewService(store *Store, cfg Config) *Service {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = settings.DefaultDailyLimit
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = defaultResetWindow
	}
	return &Service{
		store:       store,
		dailyLimit:  cfg.DailyLimit,
		resetWindow: cfg.ResetWindow,
		now:         time.Now,
	}
}

// resolveDailyLimit applies the runtime settings override when present.
func (s *Service) resolveDailyLimit() int64 {
	limit := settings.DBConfigInt(settings.DailyLimitKey, s.dailyLimit)
	if limit <= 0 {
		return s.dailyLimit
	}
	return limit
}

// CheckQuota reads the identity's quota, creating it on first sight and
// performing the lazy Expired -> Active transition when the window elapsed.
// Every read is a potential write; there is no background scheduler.
func (s *Service) CheckQuota(ctx context.Context, identity string) (QuotaInfo, error) {
	if s == nil || s.store == nil {
		return QuotaInfo{}, errors.New("quota: service not initialized")
	}

	now := s.now().UTC()
	limit := s.resolveDailyLimit()

	record, errGet := s.store.GetQuota(ctx, identity)
	if errGet != nil {
		return QuotaInfo{}, errGet
	}

	if record == nil {
		created, errCreate := s.store.CreateQuota(ctx, identity, limit, now)
		if errCreate != nil {
			// Lost a create race with a concurrent request; fall back to the
			// record that won.
			existing, errRetry := s.store.GetQuota(ctx, identity)
			if errRetry != nil || existing == nil {
				return QuotaInfo{}, errCreate
			}
			record = existing
		} else {
			return QuotaInfo{
				Identity:  identity,
				Remaining: created.RemainingOperations,
				Total:     created.DailyLimit,
				ResetTime: created.LastReset.Add(s.resetWindow),
				IsNewUser: true,
			}, nil
		}
	}

	if now.Sub(record.LastReset) >= s.resetWindow {
		if errReset := s.store.ResetQuota(ctx, identity, limit, now); errReset != nil {
			return QuotaInfo{}, errReset
		}
		return QuotaInfo{
			Identity:  identity,
			Remaining: limit,
			Total:     limit,
			ResetTime: now.Add(s.resetWindow),
		}, nil
	}

	return QuotaInfo{
		Identity:  identity,
		Remaining: record.RemainingOperations,
		Total:     record.DailyLimit,
		ResetTime: record.LastReset.Add(s.resetWindow),
	}, nil
}

// ConsumeQuota charges count units against the identity and appends an
// operation log row, both in one transaction. On insufficient budget it
// returns an *InsufficientQuotaError and performs no mutation.
func (s *Service) ConsumeQuota(ctx context.Context, identity, operationType string, count int64, documentID string) (QuotaInfo, error) {
	if s == nil || s.store == nil {
		return QuotaInfo{}, errors.New("quota: service not initialized")
	}
	if count < 1 {
		return QuotaInfo{}, fmt.Errorf("quota: invalid operation count %d", count)
	}

	// Consume always operates on a freshly validated window.
	info, errCheck := s.CheckQuota(ctx, identity)
	if errCheck != nil {
		return QuotaInfo{}, errCheck
	}
	if info.Remaining < count {
		return info, &InsufficientQuotaError{Quota: info, Required: count}
	}

	errTx := s.store.Transaction(ctx, func(tx *Store) error {
		consumed, errConsume := tx.ConsumeRemaining(ctx, identity, count)
		if errConsume != nil {
			return errConsume
		}
		if !consumed {
			return errShortfall
		}
		_, errAppend := tx.AppendOperation(ctx, identity, operationType, count, documentID)
		return errAppend
	})
	if errors.Is(errTx, errShortfall) {
		// A concurrent request drained the budget between check and consume.
		fresh, errFresh := s.CheckQuota(ctx, identity)
		if errFresh != nil {
			fresh = info
		}
		return fresh, &InsufficientQuotaError{Quota: fresh, Required: count}
	}
	if errTx != nil {
		return QuotaInfo{}, errTx
	}

	info.Remaining -= count
	return info, nil
}

// RefundQuota credits units back after a downstream failure. The store clamps
// the credit at the daily limit.
func (s *Service) RefundQuota(ctx context.Context, identity string, count int64) error {
	if s == nil || s.store == nil {
		return errors.New("quota: service not initialized")
	}
	if count < 1 {
		return fmt.Errorf("quota: invalid refund count %d", count)
	}
	return s.store.RefundRemaining(ctx, identity, count)
}

// AttachDocument links a freshly created artifact to the most recent
// operation log row for the identity that has no document yet.
func (s *Service) AttachDocument(ctx context.Context, identity, documentID string) error {
	if s == nil || s.store == nil {
		return errors.New("quota: service not initialized")
	}
	return s.store.AttachDocumentID(ctx, identity, documentID)
}

// UsageStats derives today's usage for an identity from the operation log.
// It never mutates beyond the possible lazy reset inside CheckQuota.
func (s *Service) UsageStats(ctx context.Context, identity string) (UsageStats, error) {
	if s == nil || s.store == nil {
		return UsageStats{}, errors.New("quota: service not initialized")
	}

	info, errCheck := s.CheckQuota(ctx, identity)
	if errCheck != nil {
		return UsageStats{}, errCheck
	}

	loc := time.Local
	localNow := s.now().In(loc)
	dayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)

	breakdown, errSum := s.store.SumOperationsSince(ctx, identity, dayStart)
	if errSum != nil {
		return UsageStats{}, errSum
	}

	var total int64
	for _, row := range breakdown {
		total += row.Total
	}

	percentage := 0
	if info.Total > 0 {
		percentage = int(math.Round(float64(info.Total-info.Remaining) / float64(info.Total) * 100))
	}

	if breakdown == nil {
		breakdown = []OperationSum{}
	}
	return UsageStats{
		Quota:              info,
		OperationsToday:    total,
		OperationBreakdown: breakdown,
		UsagePercentage:    percentage,
	}, nil
}

// RecordView logs a view operation, consuming one unit. Failures are logged
// and ignored: viewing never blocks on quota.
func (s *Service) RecordView(ctx context.Context, identity, documentID string) {
	if s == nil {
		return
	}
	if _, errConsume := s.ConsumeQuota(ctx, identity, OpView, 1, documentID); errConsume != nil {
		log.WithError(errConsume).Debugf("quota: view log skipped (identity=%s)", identity)
	}
}
