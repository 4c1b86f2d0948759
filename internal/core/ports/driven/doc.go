// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ObjectStore: The backing object store (memory, SQLite or Google Drive)
//   - CounterStore: Rate-limiter event storage (memory or SQLite)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - operations that need them fail with not_configured:
//
//   - GenerationProvider: Summaries, syntheses and chat answers
//   - TextGenerator: The raw model endpoint a GenerationProvider is built on
//   - PromptStore: User-customisable prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
