// Package services implements the driving port interfaces.
//
// The sync pipeline is split into stages that the Coordinator runs in order:
//
//   - Reconciler: merges snapshot rows into the record store
//   - DecisionSync: applies recent decisions found through the portal search
//   - EnrichmentWorker: fetches address and agent details for the backlog
//
// QueryService, SettingsService and Scheduler serve the CLI. Services depend
// only on ports and domain; adapters are injected by cmd/planwatch.
package services
