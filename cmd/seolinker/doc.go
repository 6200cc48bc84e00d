// Package main hosts the seolinker binary.
//
// Architecture overview:
//   - Keyword table: internal/keywords loads keyword/URL pairs from a CSV file or a Postgres table into a
//     reloadable in-memory table. Startup fails if the first load fails. Reloads come from POST /v1/keywords/reload
//     or a cron schedule (keywords.reload_schedule) and share one in-flight load.
//   - Injection: internal/linker rewrites submitted text, wrapping keyword occurrences in anchors while leaving
//     headings and existing links untouched. Each request works on an immutable table snapshot.
//   - Generation: internal/crawler walks a domain with colly, internal/keygen sends the URLs to the configured LLM
//     (OpenAI-compatible or Gemini, optionally rate limited) in batches, and the resulting table is optionally
//     exported as CSV to the configured BlobStore (memory/local/GCS/S3). A keywords.generated event goes to
//     Pub/Sub when a topic is configured.
//   - Refinement: internal/refine asks the LLM to polish linked prose and rejects rewrites that alter link targets.
//   - Configuration & plumbing: Viper populates config from env (LINKER_ prefix), an optional .env file and a YAML
//     file; zap provides structured logging; Prometheus metrics are exported via the metrics middleware and the
//     /metrics handler; OpenTelemetry spans cover each request and are propagated into Pub/Sub attributes.
//
// Commands:
//   - serve: run the HTTP API until SIGINT/SIGTERM.
//   - link [file]: inject links into a file or stdin and print the result (--json for the usage log).
//   - generate <domain>: crawl and write a Keyword,URL CSV to stdout or --out.
//
// Quick checklist:
//   - Configure env vars: LINKER_SERVER_PORT or PORT, LINKER_KEYWORDS_CSV_PATH or LINKER_KEYWORDS_SOURCE=postgres
//     with LINKER_KEYWORDS_POSTGRES_DSN, LINKER_LLM_PROVIDER and LINKER_LLM_API_KEY, storage (LINKER_STORAGE_*),
//     and pubsub when notifications are wanted.
//   - Run locally: go run ./cmd/seolinker serve --config config.example.yaml (or rely solely on env overrides).
//   - Cloud Run: the container listens on PORT and shuts down cleanly on SIGTERM.
package main
