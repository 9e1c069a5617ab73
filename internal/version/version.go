// Package version carries the build version stamped into health responses
// and analytics payloads.
package version

// Version is the module version, overridable at build time via
// -ldflags "-X .../internal/version.Version=...".
var Version = "0.3.0"
