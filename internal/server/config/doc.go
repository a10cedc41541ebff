// Package config defines the configuration of the gridsession binaries.
//
//   - spec.go: NodeConfig (gridnode) and DemoConfig (sessiondemo)
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: masking of secrets before logging
//   - store.go: translation of the declarative store section into a
//     sessionstore.Config
//   - node.go: node identity
//
// Values are loaded via internal/infra/confloader from a YAML file and
// GRIDSESSION_ environment variables.
package config
