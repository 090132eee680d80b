// Package middleware wraps cobra command handlers the way HTTP handlers are
// usually wrapped: each layer takes the next RunE and returns a new one.
package middleware

import (
	"context"
	"fmt"
	"time"

	"grit/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type RunE func(cmd *cobra.Command, args []string) error

type Middleware func(RunE) RunE

// Chain applies middlewares so that the last one listed runs first.
func Chain(h RunE, middlewares ...Middleware) RunE {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// InvocationID tags the command context with a fresh id that every log line
// of the invocation carries.
func InvocationID(next RunE) RunE {
	return func(cmd *cobra.Command, args []string) error {
		id := uuid.New().String()
		cmd.SetContext(logging.ContextWithInvocationID(commandContext(cmd), id))
		return next(cmd, args)
	}
}

func Logger(logger *logging.Logger) Middleware {
	return func(next RunE) RunE {
		return func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			err := next(cmd, args)

			fields := []zap.Field{
				zap.String("command", cmd.CommandPath()),
				zap.Int("args", len(args)),
				zap.Duration("duration", time.Since(start)),
			}
			log := logger.WithInvocationID(commandContext(cmd))
			if err != nil {
				log.Warn("command failed", append(fields, zap.Error(err))...)
			} else {
				log.Debug("command completed", fields...)
			}
			return err
		}
	}
}

// Recover turns a panic in the handler into an error.
func Recover(logger *logging.Logger) Middleware {
	return func(next RunE) RunE {
		return func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.WithInvocationID(commandContext(cmd)).Error("panic recovered",
						zap.Any("error", r),
						zap.Stack("stack"),
					)
					err = fmt.Errorf("internal error: %v", r)
				}
			}()
			return next(cmd, args)
		}
	}
}
