// Package telemetry keeps a fixed table of smoothed scalar channels fed by
// decoded sentences, with optional per-channel sample history.
package telemetry
