//go:build tools
// +build tools

// Package tools pins the versions of the code generation and lint tools used by go generate.
package tools

import (
	_ "golang.org/x/lint/golint"
	_ "golang.org/x/tools/cmd/stringer"
)
