// Package testutil provides helpers for building scripted model completions
// in tests.
package testutil
