//go:build debug
// +build debug

package playground

var debug = true
