package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"circlo/internal/app/commands"
)

// IdempotentCommand is a command a client may safely resend under the same
// key. ResultPrototype returns a fresh pointer of the handler's result type
// for decoding a stored result.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

// ActorScoped commands carry the authenticated principal that issued them.
type ActorScoped interface {
	ActorID() string
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of a successful command issued again
// with the same key by the same actor. Failures are not stored, so a client
// may retry after a transient error.
func Idempotency(store IdempotencyStore, codec ResultCodec, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return dispatchFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return next.Dispatch(ctx, cmd)
			}
			key := idempotencyScope(idCmd)
			if key == "" {
				return next.Dispatch(ctx, cmd)
			}

			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("idempotency lookup: %w", err)
			}
			if found {
				if logger != nil {
					logger.Debug("idempotent replay", "command", cmd.Key(), "key", key)
				}
				return replay(codec, idCmd, rec.Payload)
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			rec = IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if result != nil {
				if rec.Payload, err = codec.Encode(result); err != nil {
					return nil, err
				}
			}
			// the command already committed, so a failed save is only logged
			if err := store.Save(ctx, rec); err != nil && logger != nil {
				logger.Warn("idempotency record not saved", "command", cmd.Key(), "error", err)
			}
			return result, nil
		})
	}
}

func replay(codec ResultCodec, cmd IdempotentCommand, payload []byte) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(payload, proto); err != nil {
		return nil, fmt.Errorf("idempotency replay: %w", err)
	}
	return proto, nil
}

// idempotencyScope is command key, actor and client key.
func idempotencyScope(cmd IdempotentCommand) string {
	key := cmd.IdempotencyKey()
	if key == "" {
		return ""
	}
	scope := cmd.Key()
	if scoped, ok := cmd.(ActorScoped); ok {
		scope += "|" + scoped.ActorID()
	}
	return scope + "|" + key
}
