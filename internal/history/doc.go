// Package history records entity state changes for later inspection.
//
// A Recorder subscribes to client update notifications and persists
// load and shade level changes to the state_history SQLite table, and
// optionally to InfluxDB for dashboarding. Recording is strictly
// additive: a storage failure is logged and dropped, never surfaced to
// the dispatch path.
package history
