package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tgsync/internal/domain"
	"tgsync/internal/infrastructure/metrics"
	"tgsync/internal/utils"
)

// TaskRunner wraps every unit of task work: it recovers panics, logs the
// failure with context, pushes a short error event to the account's room,
// raises an operator alarm and records metrics. Each failure is reported
// here exactly once; callers get the error back to decide whether to
// continue.
type TaskRunner struct {
	service  string
	notifier domain.Notifier
	alarms   domain.AlarmSender
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewTaskRunner creates a task runner for the named service.
func NewTaskRunner(service string, notifier domain.Notifier, alarms domain.AlarmSender, logger zerolog.Logger) *TaskRunner {
	return &TaskRunner{
		service:  service,
		notifier: notifier,
		alarms:   alarms,
		logger:   logger.With().Str("component", "task_runner").Logger(),
		metrics:  metrics.DefaultMetrics,
	}
}

// Run executes fn as one unit of work. phone addresses the status room;
// errEvent names the terminal error event of the task family.
func (r *TaskRunner) Run(ctx context.Context, task, phone, errEvent string, fn func(context.Context) error) error {
	start := time.Now()
	masked := utils.MaskPhone(phone)

	r.logger.Info().Str("task", task).Str("phone", masked).Msg("Task started")

	err := r.invoke(ctx, fn)
	duration := time.Since(start)
	r.metrics.TaskDuration.WithLabelValues(task).Observe(duration.Seconds())

	if err == nil {
		r.metrics.TasksTotal.WithLabelValues(task, "success").Inc()
		r.logger.Info().
			Str("task", task).
			Str("phone", masked).
			Dur("duration", duration).
			Msg("Task completed")
		return nil
	}

	r.metrics.TasksTotal.WithLabelValues(task, "error").Inc()
	r.logger.Error().Err(err).
		Str("task", task).
		Str("phone", masked).
		Dur("duration", duration).
		Msg("Task failed")

	r.notifier.Notify(phone, errEvent, userMessage(err))

	alarm := domain.Alarm{
		Service: r.service,
		Task:    task,
		Phone:   masked,
		Message: err.Error(),
		Time:    time.Now().UTC(),
	}
	if alarmErr := r.alarms.SendAlarm(ctx, alarm); alarmErr != nil {
		r.logger.Error().Err(alarmErr).Str("task", task).Msg("Failed to send alarm")
	}

	return err
}

// invoke runs fn converting a panic into an error.
func (r *TaskRunner) invoke(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return fn(ctx)
}

// userMessage maps an internal error to the short text pushed to clients.
// Raw errors never reach the broadcast payload.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrCodeTimeout):
		return "Login code was not received in time"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "Account not found"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "Authentication failed"
	case errors.Is(err, domain.ErrDialogNotFound), errors.Is(err, domain.ErrPeerNotFound):
		return "Dialog is not reachable by this account"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Task was cancelled"
	default:
		return "Task failed, please try again later"
	}
}
