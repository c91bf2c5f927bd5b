//go:build tools
// +build tools

// Package tools pins development tool dependencies in go.mod so that
// `go run go.uber.org/mock/mockgen` (see internal/mocks) uses a
// consistent version across machines.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
