package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext guarda un logger en el contexto. El middleware de logging lo
// usa para dejar uno ya cargado con request_id, método, path y usuario.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From saca el logger del contexto, o el singleton si no hay ninguno.
// Así los handlers loguean con los campos del request sin saber si el
// middleware corrió o no.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return L()
}
