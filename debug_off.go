//go:build !debug
// +build !debug

package playground

var debug = false

// debug is used as a global variable to check if the console is running in a debug build.
// This approach allows stripping the frame trace dump from release builds.
// These are only small changes that don't require big changes in the codebase.
