// Package api hosts the HTTP server, middleware, and REST handlers of the
// linker service. Notable routes:
//   - GET /healthz and /readyz for health checks; readyz fails until a keyword table is loaded.
//   - GET /metrics for Prometheus scraping.
//   - POST /process-text and /improve-linking to inject links into text.
//   - POST /generate-keywords to crawl a domain and build a keyword table.
//   - GET /v1/keywords and POST /v1/keywords/reload to inspect and refresh the table.
package api
