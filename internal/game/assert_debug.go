//go:build debug

package game

const debugAssertions = true
