// Package output renders gridsession-cli results as a table, JSON or YAML.
package output
