// Package embedded carries data files compiled into the attrmap binary.
package embedded

import (
	"embed"
)

// FS embeds the default alias tables.
//
//go:embed aliases/*
var FS embed.FS

// BaseAliasesPath is the location of the default base alias table inside FS.
const BaseAliasesPath = "aliases/base_aliases.yaml"
