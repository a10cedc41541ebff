// Package confloader loads configuration with koanf and watches config files
// with fsnotify.
//
// Sources, lowest priority first:
//
//  1. defaults already present in the target struct
//  2. a YAML file
//  3. environment variables with the GRIDSESSION_ prefix
//  4. explicit maps (command-line flags)
//
// Environment keys use a double underscore between sections so that single
// underscores survive in key names:
//
//	GRIDSESSION_STORE__DISABLE_TTL=true   ->  store.disable_ttl
//	GRIDSESSION_GOSSIP__SEEDS=a:7946,b:7946  ->  gossip.seeds
package confloader
