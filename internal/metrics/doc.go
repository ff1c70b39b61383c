/*
Package metrics provides Prometheus collectors for the planwatch pipeline.

Collectors are registered with the default registry on import and exposed
by the serve command at /metrics:

	curl http://localhost:9464/metrics

# Available Metrics

Cycle:
  - planwatch_cycles_total{outcome}
  - planwatch_cycle_duration_seconds
  - planwatch_cycle_last_success_timestamp

Reconcile:
  - planwatch_reconcile_rows_total{result}

Snapshot:
  - planwatch_snapshot_downloads_total{result}
  - planwatch_snapshot_rejected_rows_total

Enrichment:
  - planwatch_enrichment_total{result}
  - planwatch_enrichment_backlog
  - planwatch_validation_warnings_total

Portal:
  - planwatch_portal_requests_total{endpoint,code}
  - planwatch_portal_request_duration_seconds{endpoint}
  - planwatch_portal_breaker_state
  - planwatch_key_resolutions_total{result}
*/
package metrics
