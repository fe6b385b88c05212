// Package notifications keeps the Notification table equal to the set of
// alert conditions that currently hold. Each rule is reconciled on its own:
// new matches are created, matches that stopped holding are deleted.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linker/internal/constants"
	"linker/internal/db/repositories"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/models/dtos"
	"linker/internal/models/gorm"

	"go.uber.org/zap"
)

// Match is one tracker for which a rule holds. When Since is set, an existing
// notification sent before Since is replaced by a new one.
type Match struct {
	TrackerID uint
	Severity  int
	Since     *time.Time
}

// Rule evaluates one notification type against the current tracker state.
type Rule interface {
	Type() constants.NotificationType
	Evaluate(ctx context.Context, now time.Time) ([]Match, error)
}

// Result counts the changes of one reconciliation.
type Result struct {
	Created int
	Deleted int
}

type Engine struct {
	notifications *repositories.NotificationRepo
	rules         []Rule
	metrics       *metrics.MetricsRegistry
	log           *zap.SugaredLogger
}

func NewEngine(notifications *repositories.NotificationRepo, metricsReg *metrics.MetricsRegistry, rules ...Rule) *Engine {
	return &Engine{
		notifications: notifications,
		rules:         rules,
		metrics:       metricsReg,
		log:           logging.Named("notifications"),
	}
}

// Reconcile evaluates rule and brings the stored notifications of its type in
// line with the matches.
func (e *Engine) Reconcile(ctx context.Context, rule Rule, now time.Time) (Result, error) {
	var res Result
	now = now.UTC()

	matches, err := rule.Evaluate(ctx, now)
	if err != nil {
		return res, fmt.Errorf("failed to evaluate %s: %w", rule.Type(), err)
	}

	existing, err := e.notifications.ListByType(ctx, rule.Type())
	if err != nil {
		return res, fmt.Errorf("failed to list %s notifications: %w", rule.Type(), err)
	}

	matched := make(map[uint]bool, len(matches))
	var stale []uint
	var create []gorm.Notification

	for _, m := range matches {
		if matched[m.TrackerID] {
			continue
		}
		matched[m.TrackerID] = true

		sent := now
		if m.Since != nil && m.Since.After(now) {
			sent = m.Since.UTC()
		}

		if n, ok := existing[m.TrackerID]; ok {
			if m.Since == nil || !n.Sent.Before(*m.Since) {
				continue
			}
			stale = append(stale, n.ID)
		}
		create = append(create, gorm.Notification{
			NotificationType: rule.Type(),
			TrackerID:        m.TrackerID,
			Severity:         m.Severity,
			Sent:             sent,
		})
	}

	for trackerID, n := range existing {
		if !matched[trackerID] {
			stale = append(stale, n.ID)
		}
	}

	if err := e.notifications.Delete(ctx, stale); err != nil {
		return res, fmt.Errorf("failed to delete %s notifications: %w", rule.Type(), err)
	}
	res.Deleted = len(stale)

	for i := range create {
		inserted, err := e.notifications.Create(ctx, &create[i])
		if err != nil {
			return res, fmt.Errorf("failed to create %s notification: %w", rule.Type(), err)
		}
		if inserted {
			res.Created++
		}
	}

	return res, nil
}

// RunAll reconciles every rule. A failing rule is logged and does not stop
// the others.
func (e *Engine) RunAll(ctx context.Context, now time.Time) error {
	var errs []error
	for _, rule := range e.rules {
		res, err := e.Reconcile(ctx, rule, now)
		if err != nil {
			e.log.Errorw("Rule failed", "type", rule.Type(), "error", err)
			errs = append(errs, err)
			continue
		}
		if res.Created > 0 || res.Deleted > 0 {
			e.log.Infow("Reconciled", "type", rule.Type(), "created", res.Created, "deleted", res.Deleted)
		}
	}

	if err := e.updateGauge(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) updateGauge(ctx context.Context) error {
	if e.metrics == nil {
		return nil
	}
	counts, err := e.notifications.CountByType(ctx)
	if err != nil {
		return fmt.Errorf("failed to count notifications: %w", err)
	}
	for _, rule := range e.rules {
		e.metrics.NotificationsActive.WithLabelValues(rule.Type().String()).Set(float64(counts[rule.Type()]))
	}
	return nil
}

// List returns the active notifications with the read state of userID.
func (e *Engine) List(ctx context.Context, userID string) ([]dtos.NotificationResponse, error) {
	notifications, err := e.notifications.List(ctx)
	if err != nil {
		return nil, err
	}

	read := map[uint]bool{}
	if userID != "" {
		if read, err = e.notifications.ReadBy(ctx, userID); err != nil {
			return nil, err
		}
	}

	out := make([]dtos.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp := dtos.NotificationResponse{
			ID:               n.ID,
			NotificationType: n.NotificationType.String(),
			TrackerID:        n.TrackerID,
			Severity:         n.Severity,
			Sent:             n.Sent,
			Read:             read[n.ID],
		}
		if n.Tracker != nil {
			resp.TrackerName = n.Tracker.String()
		}
		out = append(out, resp)
	}
	return out, nil
}

// MarkRead marks a notification as read by userID. Returns false when the
// notification does not exist.
func (e *Engine) MarkRead(ctx context.Context, userID string, notificationID uint) (bool, error) {
	return e.notifications.MarkRead(ctx, userID, notificationID)
}
