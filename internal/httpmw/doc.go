// Package httpmw provides the HTTP middleware stages applied to every
// storefront request.
//
// httpserver.NewHandler composes them in a fixed order: security
// headers, panic recovery, request ID, client IP extraction, per-client
// rate limiting (API paths only), CORS, tracing, metrics,
// request-scoped logging, then the router. Each middleware either
// writes the final response and returns, or calls the next handler;
// there is no other control flow between stages.
//
// User-supplied data (query params, user-agent, arbitrary headers) is
// intentionally excluded from logs to prevent PII leaks and log
// injection.
package httpmw
