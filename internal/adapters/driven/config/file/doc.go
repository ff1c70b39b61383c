// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem as TOML.
//
// Adapters:
//   - ConfigStore: user settings in config.toml
//   - WatermarkStore: sync state in state.toml
package file
