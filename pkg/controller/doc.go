// Package controller holds the net/http middlewares shared by every route
// of the API: WithLogger (request ids and access logs), WithRecover,
// WithCORS for extension origins, and PprofMux for profiling.
package controller
