package documents

import (
	"context"

	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/shared"
)

// compensation is one registered undo action
type compensation struct {
	name string
	fn   func(context.Context) error
}

// UnitOfWork runs the steps of one document commit and records a compensating
// action for each completed step. On failure the caller rolls back: the
// compensations run in reverse order, and a failing compensation is logged
// and skipped rather than aborting the unwind.
//
// One unit of work covers exactly one document save; the whole save shares a
// single context and is cancelled as one operation.
type UnitOfWork struct {
	logger        *zap.Logger
	compensations []compensation
	events        []shared.DomainEvent
	done          bool
}

// NewUnitOfWork creates a unit of work for one document commit
func NewUnitOfWork(logger *zap.Logger) *UnitOfWork {
	return &UnitOfWork{
		logger:        logger,
		compensations: make([]compensation, 0),
	}
}

// CollectEvents drains an aggregate's pending domain events into the unit of
// work. They are published by the caller after a successful commit and
// discarded on rollback.
func (u *UnitOfWork) CollectEvents(agg shared.AggregateRoot) {
	u.events = append(u.events, agg.GetDomainEvents()...)
	agg.ClearDomainEvents()
}

// Events returns the events collected by completed steps
func (u *UnitOfWork) Events() []shared.DomainEvent {
	return u.events
}

// RunStep executes a step and, on success, registers its compensating action.
// A nil compensate is allowed for read-only steps.
func (u *UnitOfWork) RunStep(ctx context.Context, name string, step func(context.Context) error,
	compensate func(context.Context) error) error {

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := step(ctx); err != nil {
		return err
	}
	if compensate != nil {
		u.compensations = append(u.compensations, compensation{name: name, fn: compensate})
	}
	return nil
}

// Rollback undoes every completed step in reverse order
func (u *UnitOfWork) Rollback(ctx context.Context) {
	if u.done {
		return
	}
	u.done = true

	for i := len(u.compensations) - 1; i >= 0; i-- {
		c := u.compensations[i]
		if err := c.fn(ctx); err != nil {
			u.logger.Error("compensation failed, continuing rollback",
				zap.String("step", c.name),
				zap.Error(err))
		}
	}
	u.compensations = nil
	u.events = nil
}

// Commit discards the compensations; the document save is final
func (u *UnitOfWork) Commit() {
	u.done = true
	u.compensations = nil
}
