// Package repositories provides the SQLite persistence layer for the flow history.
//
// [FlowRepository] implements [models.Repository] for [models.Flow], including soft deletes and sequence
// generation. [FlowRecorder] ties a running listener to its history row.
package repositories
