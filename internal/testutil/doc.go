// Package testutil provides IR fixtures, hardware profiles and deterministic
// ID generators shared by tests across packages.
package testutil
