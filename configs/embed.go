// Package configs embeds the default catalog and the configuration template
// so they ship with every build of catmatch.
//
// Files:
//   - catalog.yaml: built-in taxonomy used when catalog.path is empty
//   - config.example.yaml: written by `catmatch config init`
package configs

import _ "embed"

// DefaultCatalog is the built-in construction materials taxonomy.
//
//go:embed catalog.yaml
var DefaultCatalog []byte

// ConfigTemplate is the commented configuration template.
//
//go:embed config.example.yaml
var ConfigTemplate string
