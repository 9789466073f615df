// Package config loads and validates eMart Core configuration.
//
// Configuration is read from a YAML file with environment variable
// overrides (EMART_* pattern). Validation runs at load time so the
// daemon fails fast on misconfiguration rather than at first use.
package config
