package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tgsync/internal/domain"
	"tgsync/internal/infrastructure/metrics"
	"tgsync/internal/utils"
)

const taskDialogInfoSync = "dialog_info_sync"

// DialogInfoSyncUseCase refreshes the stored dialog list of an account from
// the conversations its session can see. The upsert is idempotent: running
// the sync twice yields the same rows.
type DialogInfoSyncUseCase struct {
	sessions *SessionManager
	accounts domain.AccountRepository
	dialogs  domain.DialogRepository
	runner   *TaskRunner
	notifier domain.Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewDialogInfoSyncUseCase creates the dialog info sync use case.
func NewDialogInfoSyncUseCase(
	sessions *SessionManager,
	accounts domain.AccountRepository,
	dialogs domain.DialogRepository,
	runner *TaskRunner,
	notifier domain.Notifier,
	logger zerolog.Logger,
) *DialogInfoSyncUseCase {
	return &DialogInfoSyncUseCase{
		sessions: sessions,
		accounts: accounts,
		dialogs:  dialogs,
		runner:   runner,
		notifier: notifier,
		logger:   logger.With().Str("component", "dialog_info_sync").Logger(),
		metrics:  metrics.DefaultMetrics,
	}
}

// Handle processes one dialog sync task: a single phone, or "all" for every
// authenticated account.
func (u *DialogInfoSyncUseCase) Handle(ctx context.Context, target string) error {
	if target != domain.TaskTargetAll {
		return u.runner.Run(ctx, taskDialogInfoSync, target, domain.EventDialogInfoSyncError, func(ctx context.Context) error {
			account, err := u.accounts.GetByPhone(ctx, target)
			if err != nil {
				return err
			}
			return u.syncAccount(ctx, account)
		})
	}

	accounts, err := u.accounts.ListByStatus(ctx, domain.AccountStatusNormal)
	if err != nil {
		u.logger.Error().Err(err).Msg("Failed to list accounts")
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	u.logger.Info().Int("accounts", len(accounts)).Msg("Syncing dialogs for all accounts")

	var errs []error
	for i := range accounts {
		account := &accounts[i]
		err := u.runner.Run(ctx, taskDialogInfoSync, account.Phone, domain.EventDialogInfoSyncError, func(ctx context.Context) error {
			return u.syncAccount(ctx, account)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("dialog sync %s: %w", utils.MaskPhone(account.Phone), err))
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return errors.Join(errs...)
}

func (u *DialogInfoSyncUseCase) syncAccount(ctx context.Context, account *domain.Account) error {
	logger := u.logger.With().Str("phone", utils.MaskPhone(account.Phone)).Logger()

	sess, err := u.sessions.Open(ctx, account, domain.EventDialogInfoSyncUpdate)
	if err != nil {
		return err
	}
	defer u.sessions.CloseSession(sess)

	var total, created int
	err = sess.Dialogs(ctx, func(remote domain.RemoteDialog) error {
		dialog := domain.Dialog{
			TgID:      remote.TgID,
			AccountID: account.ID,
			Title:     remote.Title,
			Username:  remote.Username,
			Type:      remote.Type,
			Status:    true,
		}

		isNew, err := u.dialogs.Upsert(ctx, &dialog)
		if err != nil {
			return fmt.Errorf("failed to upsert dialog %d: %w", remote.TgID, err)
		}

		total++
		u.metrics.DialogsUpserted.Inc()
		if isNew {
			created++
			u.metrics.DialogsCreated.Inc()
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().
		Int("dialogs", total).
		Int("created", created).
		Msg("Dialog info sync completed")

	u.notifier.Notify(account.Phone, domain.EventDialogInfoSyncSuccess,
		fmt.Sprintf("Synced %d dialogs", total))
	return nil
}
