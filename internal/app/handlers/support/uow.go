package support

import (
	"context"

	"circlo/internal/app/uow"
)

func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Attach(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// ManagedUnit is a write unit a handler either joined from the context or
// started itself. Finish commits only a unit the handler started; a joined
// unit is committed by whoever began it. Pass the embedded UnitOfWork to
// helpers that take a uow.UnitOfWork.
type ManagedUnit struct {
	uow.UnitOfWork
	Ctx       context.Context
	managed   bool
	committed bool
}

func BeginUnit(ctx context.Context, factory uow.UoWFactory) (*ManagedUnit, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return &ManagedUnit{UnitOfWork: unit, Ctx: ctx}, nil
	}
	if factory == nil {
		return nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &ManagedUnit{UnitOfWork: unit, Ctx: uow.Attach(ctx, unit), managed: true}, nil
}

func (m *ManagedUnit) Finish() error {
	if !m.managed {
		return nil
	}
	if err := m.UnitOfWork.Commit(m.Ctx); err != nil {
		return err
	}
	m.committed = true
	return nil
}

// Close rolls back a started unit that was not finished.
func (m *ManagedUnit) Close() {
	if m.managed && !m.committed {
		_ = m.UnitOfWork.Rollback(m.Ctx)
	}
}
