//go:build debug

package index

const consistencyDefault = true
