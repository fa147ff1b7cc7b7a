// Package logx is stockrelay's structured logging layer.
//
// Logger wraps zerolog with typed field helpers. A Service owns the sinks
// (console, JSON file, and an optional chat log sink that is level-filtered
// and rate limited) and can swap them at runtime when the config reloads.
package logx
