// Package config resolves the on-disk layout AegisFS processes agree on.
//
// The document is a small JSON file whose location is taken from the
// AEGISFS_CONFIG environment variable (defaulting to ./config.json).
// Every path it names other than root_dir is resolved relative to
// root_dir, the way the original Python implementation's Level0Config
// did.
package config
