// Package configs provides embedded configuration templates for docrag.
//
// Templates are embedded at build time with //go:embed so they are
// available in every distribution, source builds and binary releases
// alike. 'docrag config init' writes the template to
// ~/.docrag/config.yaml.
package configs

import _ "embed"

// ConfigTemplate is the annotated default configuration.
//
//go:embed config.example.yaml
var ConfigTemplate string
