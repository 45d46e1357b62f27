// Package supervisor runs the long-lived server tasks and turns the first
// fatal error from any of them into the result of the whole process.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"
)

// Task is a long-running unit of work. It returns nil when ctx is done and a
// non-nil error only when something fatal happened.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Supervisor struct {
	logger *slog.Logger
	fatal  chan error
}

func New(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logger, fatal: make(chan error, 1)}
}

// Fail escalates a fatal error from code that is not itself a Task, such as a
// connection handler. Only the first call has any effect.
func (s *Supervisor) Fail(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}

// Run starts every task and blocks until ctx is done or one of them fails.
// A failure cancels the others and is returned. A panic in a task is
// re-raised here.
func (s *Supervisor) Run(ctx context.Context, tasks ...Task) error {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, t := range tasks {
		p.Go(func(ctx context.Context) error {
			s.logger.Info("starting task", "task", t.Name)
			if err := t.Run(ctx); err != nil {
				s.logger.Error("task failed", "task", t.Name, "err", err)
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			s.logger.Info("task stopped", "task", t.Name)
			return nil
		})
	}
	p.Go(func(ctx context.Context) error {
		select {
		case err := <-s.fatal:
			s.logger.Error("fatal error escalated", "err", err)
			return err
		case <-ctx.Done():
			return nil
		}
	})
	return p.Wait()
}
