package middleware

// DefaultStack returns the middleware every interactive session runs with:
// a request ID for correlation, request logging, then extra in order, with
// panic recovery closest to the transport.
func DefaultStack(logger Logger, extra ...Middleware) []Middleware {
	stack := []Middleware{
		RequestID(),
		Logging(logger),
	}
	stack = append(stack, extra...)
	return append(stack, Recover())
}
