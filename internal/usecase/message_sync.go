package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"tgsync/internal/domain"
	"tgsync/internal/infrastructure/metrics"
	"tgsync/internal/utils"
)

const taskMessageSync = "message_sync"

// MessageSyncUseCase replicates message history between dialogs according
// to the enabled sync rules. Rules run concurrently and fail independently;
// one broken rule never cancels the others.
type MessageSyncUseCase struct {
	sessions *SessionManager
	rules    domain.DialogSyncRepository
	runner   *TaskRunner
	notifier domain.Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewMessageSyncUseCase creates the message replication use case.
func NewMessageSyncUseCase(
	sessions *SessionManager,
	rules domain.DialogSyncRepository,
	runner *TaskRunner,
	notifier domain.Notifier,
	logger zerolog.Logger,
) *MessageSyncUseCase {
	return &MessageSyncUseCase{
		sessions: sessions,
		rules:    rules,
		runner:   runner,
		notifier: notifier,
		logger:   logger.With().Str("component", "message_sync").Logger(),
		metrics:  metrics.DefaultMetrics,
	}
}

// RunAll executes one replication pass over every enabled rule.
func (u *MessageSyncUseCase) RunAll(ctx context.Context) error {
	rules, err := u.rules.ListEnabled(ctx)
	if err != nil {
		u.logger.Error().Err(err).Msg("Failed to list sync rules")
		return fmt.Errorf("failed to list sync rules: %w", err)
	}

	if len(rules) == 0 {
		u.logger.Debug().Msg("No enabled sync rules")
		return nil
	}

	u.logger.Info().Int("rules", len(rules)).Msg("Replication pass started")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := range rules {
		rule := &rules[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := u.runRule(ctx, rule); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("rule %d: %w", rule.ID, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		u.metrics.RulesProcessed.WithLabelValues("error").Add(float64(len(errs)))
	}
	u.metrics.RulesProcessed.WithLabelValues("success").Add(float64(len(rules) - len(errs)))

	u.logger.Info().
		Int("rules", len(rules)).
		Int("failed", len(errs)).
		Msg("Replication pass completed")

	return errors.Join(errs...)
}

func (u *MessageSyncUseCase) runRule(ctx context.Context, rule *domain.DialogSync) error {
	phone := ""
	if rule.Account != nil {
		phone = rule.Account.Phone
	}
	return u.runner.Run(ctx, taskMessageSync, phone, domain.EventMessageSyncError, func(ctx context.Context) error {
		return u.syncRule(ctx, rule)
	})
}

// syncRule replicates one rule: open a session for the rule's account,
// resolve both endpoints, stream the source history and send each text
// message to the target. Per-message failures are logged and skipped.
func (u *MessageSyncUseCase) syncRule(ctx context.Context, rule *domain.DialogSync) error {
	if rule.Account == nil {
		return fmt.Errorf("rule %d: %w", rule.ID, domain.ErrAccountNotFound)
	}
	if rule.FromDialog == nil || rule.ToDialog == nil {
		return fmt.Errorf("rule %d: %w", rule.ID, domain.ErrDialogNotFound)
	}

	logger := u.logger.With().
		Uint("rule_id", rule.ID).
		Str("phone", utils.MaskPhone(rule.Account.Phone)).
		Int64("from", rule.FromDialog.TgID).
		Int64("to", rule.ToDialog.TgID).
		Logger()

	sess, err := u.sessions.Open(ctx, rule.Account, domain.EventMessageSyncUpdate)
	if err != nil {
		return err
	}
	defer u.sessions.CloseSession(sess)

	fromPeer, err := sess.ResolvePeer(ctx, rule.FromDialog.TgID)
	if err != nil {
		return fmt.Errorf("source dialog %d: %w", rule.FromDialog.TgID, err)
	}
	toPeer, err := sess.ResolvePeer(ctx, rule.ToDialog.TgID)
	if err != nil {
		return fmt.Errorf("target dialog %d: %w", rule.ToDialog.TgID, err)
	}

	var replicated, skippedService, skippedEmpty, failed int
	err = sess.Messages(ctx, fromPeer, rule.Settings.MessageReversed, func(msg domain.RemoteMessage) error {
		if msg.Service {
			skippedService++
			u.metrics.MessagesSkippedService.Inc()
			return nil
		}
		// Media-only messages carry no text to forward. Counted apart from
		// service messages so a replication gap is distinguishable from the
		// always-skip policy.
		if msg.Text == "" {
			skippedEmpty++
			u.metrics.MessagesSkippedEmpty.Inc()
			logger.Debug().Int("message_id", msg.ID).Msg("Skipping message without text content")
			return nil
		}

		if err := sess.SendMessage(ctx, toPeer, msg.Text); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			u.metrics.ReplicationErrors.Inc()
			logger.Warn().Err(err).Int("message_id", msg.ID).Msg("Failed to replicate message")
			return nil
		}

		replicated++
		u.metrics.MessagesReplicated.Inc()

		if rule.Settings.OnlyLatestMessage {
			return domain.ErrStopIteration
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().
		Int("replicated", replicated).
		Int("skipped_service", skippedService).
		Int("skipped_empty", skippedEmpty).
		Int("failed", failed).
		Msg("Rule replication completed")

	u.notifier.Notify(rule.Account.Phone, domain.EventMessageSyncSuccess,
		fmt.Sprintf("Replicated %d messages", replicated))
	return nil
}
