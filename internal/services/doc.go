// Package services defines shared error utilities consumed by the pipeline
// components and external tool integrations.
//
// The sentinel markers classify failures (external tool, validation,
// configuration, timeout, transient) and the Wrap helper builds consistent
// error messages that keep component and operation context while remaining
// matchable with errors.Is.
//
// Use these helpers when wiring new pipeline logic so error handling stays
// uniform across the system.
package services
