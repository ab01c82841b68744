// Package middleware wraps the round trip between the client and an MCP
// server.
//
// A transport's Send method is a SendFunc. Middleware decorate it before the
// client uses it:
//
//	send := middleware.Chain(
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	    middleware.OTel(middleware.WithTracerProvider(tp)),
//	    middleware.Recover(),
//	)(transport.Send)
//
// Available middleware:
//
//   - RequestID: tags each round trip with a UUID in the context
//   - Logging: logs method, duration and failures
//   - OTel: client spans plus request, error and latency metrics
//   - RateLimit: token bucket cap on outbound requests (fortify)
//   - Recover: converts transport panics into internal errors
//
// Loggers implement the small Logger interface; NewSlogLogger adapts a
// *slog.Logger and NopLogger discards everything.
package middleware
