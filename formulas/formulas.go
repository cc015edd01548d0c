// Package formulas holds the manifests shipped with keg.
package formulas

import "embed"

// FS contains every manifest document in this directory.
//
//go:embed *.yaml
var FS embed.FS
