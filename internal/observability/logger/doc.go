// Package logger es el zap singleton del proxy, con scoping por request
// vía contexto.
//
// Inicialización (una vez, en serve):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "proxyjohn"})
//	defer logger.Sync()
//
// En handlers, con los campos del request ya puestos por el middleware:
//
//	logger.From(ctx).Info("provider conectado", logger.Provider(name), logger.UserID(uid))
//
// Fuera de un request, por componente:
//
//	logger.Named("registry").Info("provider registrado", logger.Provider(name))
package logger
