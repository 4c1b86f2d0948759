// Package domain defines the core business entities for distill.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Artifact: A generated summary or synthesis, the authoritative document
//   - ArtifactIndex: The denormalized per-space catalog used for prefiltering
//   - EntityAliases: The user-maintained alias table for entity canonicalization
//   - Citation: A provider-asserted grounding pointer
//   - Error: The single error-kind taxonomy carried out of the core
//
// Decoding of stored payloads happens only through DecodeArtifact,
// DecodeIndex and DecodeAliases, which return typed documents or a
// *ParseError.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
