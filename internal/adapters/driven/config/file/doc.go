// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with change watching
//   - PromptStore: user-editable system prompts for the generation provider
package file
