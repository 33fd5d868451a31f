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

const taskLogin = "login"

// LoginUseCase authenticates accounts on demand. A login task carries a
// phone number, or "all" to authenticate every live account.
type LoginUseCase struct {
	sessions *SessionManager
	accounts domain.AccountRepository
	runner   *TaskRunner
	notifier domain.Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewLoginUseCase creates the login use case.
func NewLoginUseCase(
	sessions *SessionManager,
	accounts domain.AccountRepository,
	runner *TaskRunner,
	notifier domain.Notifier,
	logger zerolog.Logger,
) *LoginUseCase {
	return &LoginUseCase{
		sessions: sessions,
		accounts: accounts,
		runner:   runner,
		notifier: notifier,
		logger:   logger.With().Str("component", "login").Logger(),
		metrics:  metrics.DefaultMetrics,
	}
}

// Handle processes one login task. Accounts are processed one at a time so
// two sessions for the same phone can never race.
func (u *LoginUseCase) Handle(ctx context.Context, target string) error {
	if target != domain.TaskTargetAll {
		return u.loginPhone(ctx, target)
	}

	accounts, err := u.accounts.List(ctx)
	if err != nil {
		u.logger.Error().Err(err).Msg("Failed to list accounts")
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	u.logger.Info().Int("accounts", len(accounts)).Msg("Logging in all accounts")

	var errs []error
	for i := range accounts {
		if err := u.loginAccount(ctx, &accounts[i]); err != nil {
			errs = append(errs, fmt.Errorf("login %s: %w", utils.MaskPhone(accounts[i].Phone), err))
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return errors.Join(errs...)
}

func (u *LoginUseCase) loginPhone(ctx context.Context, phone string) error {
	return u.runner.Run(ctx, taskLogin, phone, domain.EventLoginError, func(ctx context.Context) error {
		account, err := u.accounts.GetByPhone(ctx, phone)
		if err != nil {
			return err
		}
		return u.login(ctx, account)
	})
}

func (u *LoginUseCase) loginAccount(ctx context.Context, account *domain.Account) error {
	return u.runner.Run(ctx, taskLogin, account.Phone, domain.EventLoginError, func(ctx context.Context) error {
		return u.login(ctx, account)
	})
}

// login opens a session, persists the resolved profile and marks the
// account Normal. The session is closed on every exit path.
func (u *LoginUseCase) login(ctx context.Context, account *domain.Account) error {
	logger := u.logger.With().Str("phone", utils.MaskPhone(account.Phone)).Logger()

	sess, err := u.sessions.Open(ctx, account, domain.EventLoginUpdate)
	if err != nil {
		if errors.Is(err, domain.ErrCodeTimeout) {
			u.metrics.CodeWaitTimeout.Inc()
			u.metrics.LoginFailures.WithLabelValues("code_timeout").Inc()
		} else {
			u.metrics.LoginFailures.WithLabelValues("open_failed").Inc()
		}
		return err
	}
	defer u.sessions.CloseSession(sess)

	profile, err := sess.Profile(ctx)
	if err != nil {
		u.metrics.LoginFailures.WithLabelValues("profile_failed").Inc()
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	if err := u.accounts.SaveProfile(ctx, account.ID, *profile); err != nil {
		u.metrics.LoginFailures.WithLabelValues("save_failed").Inc()
		return err
	}

	u.metrics.LoginsTotal.Inc()
	logger.Info().
		Int64("tg_id", profile.TgID).
		Str("username", profile.Username).
		Msg("Account authenticated")

	u.notifier.Notify(account.Phone, domain.EventLoginSuccess, "Login successful")
	return nil
}
