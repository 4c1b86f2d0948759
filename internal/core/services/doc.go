// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query engine reads at most limitArtifacts+scanBuffer full documents
// per request, sequentially and in recency order. Every artifact the
// generation service writes is upserted into the index in the same
// operation, so the index is never stale for the core's own writes.
package services
