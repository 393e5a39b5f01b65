package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init levanta el singleton. Idempotente: solo la primera llamada cuenta;
// serve la hace apenas carga la config.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L devuelve el singleton; si nadie llamó Init, arranca uno de dev para
// que los tests y helpers nunca logueen contra nil.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev"})
	}
	return instance
}

// Named devuelve un logger de componente ("registry", "state", "token",
// "proxy", "rate"). El nombre sale en cada línea.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync vacía los buffers pendientes. Para el defer de main.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
