package main

import _ "embed"

// embeddedConfig holds the YAML defaults compiled into the binary.
// Build scripts may overwrite embed_config.yaml with site defaults before
// compiling.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
