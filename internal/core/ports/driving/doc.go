// Package driving declares the operations the CLI and the serve endpoints
// call on the core. internal/core/services implements every interface here.
package driving
