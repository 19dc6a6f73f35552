package middleware

import (
	"context"
	"fmt"

	"circlo/internal/app/commands"
	"circlo/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs the rest of the chain inside one unit of work. The unit is
// rolled back when the handler fails, panics, or the commit itself fails.
func Transaction(factory uow.UoWFactory, options TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return dispatchFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			var opts uow.TxOptions
			if options != nil {
				opts = options(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, fmt.Errorf("begin unit for %s: %w", cmd.Key(), err)
			}
			txCtx := uow.Attach(ctx, unit)
			defer func() {
				if p := recover(); p != nil {
					_ = unit.Rollback(txCtx)
					panic(p)
				}
				if err != nil {
					_ = unit.Rollback(txCtx)
				}
			}()

			if res, err = next.Dispatch(txCtx, cmd); err != nil {
				return nil, err
			}
			if err = unit.Commit(txCtx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
