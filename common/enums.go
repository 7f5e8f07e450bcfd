// Package common keeps enums shared between configuration and processing
// code, so the twee package does not depend on configuration.
package common

// Specification of what to do when two outputs of a single run resolve to
// the same file.
// ENUM(overwrite, warn, suffix, fail)
type CollisionPolicy int
