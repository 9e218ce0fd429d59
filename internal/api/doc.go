// Package api hosts the HTTP server, middleware, and REST handlers.
// Routes:
//   - GET /tenders?max_tenders=N runs a crawl and returns the records.
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
package api
