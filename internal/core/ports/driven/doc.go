// Package driven declares what the planwatch core needs from the outside:
// somewhere to keep records, a snapshot to read and a portal to scrape.
//
// Services receive these as constructor arguments and never import an
// adapter. cmd/planwatch decides which implementation backs each one.
//
//   - ApplicationStore: records and the status audit log
//   - SnapshotSource: the open-data CSV, with conditional download
//   - DetailFetcher, ReferenceResolver: per-application portal pages
//   - DecisionSearcher: recent decisions; nil skips the decision stage
//   - WatermarkStore: identity of the last fully ingested snapshot
//   - ConfigStore: user settings as dot keys
//   - SchedulerStore: job schedules and run log for serve
package driven
