/*
Package observability turns engine lifecycle events into metrics and logs.

Metrics are kept in a private Prometheus registry so several engines (or
tests) can coexist in one process; Handler exposes them for scraping.
*/
package observability
