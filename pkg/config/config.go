package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EnvVar names the environment variable that selects the config document.
const EnvVar = "AEGISFS_CONFIG"

// DefaultPath is used when EnvVar is unset.
const DefaultPath = "./config.json"

// Defaults for fields omitted from the config document.
const (
	DefaultMetadataFile = "mds_metadata.json"
	DefaultJournalFile  = "mds_journal.log"
	DefaultDataDir      = "data"
	DefaultLogDir       = "logs"

	DefaultMDSHost = "127.0.0.1"
	DefaultMDSPort = 9000

	DefaultDataNodeHost = "127.0.0.1"
	DefaultDataNodePort = 9101
)

// BlockSize is the fixed chunk size the client pipeline shards files into.
const BlockSize = 4096

// document is the raw shape of the JSON config file on disk.
type document struct {
	RootDir      string `json:"root_dir"`
	MetadataFile string `json:"metadata_file"`
	JournalFile  string `json:"journal_file"`
	DataDir      string `json:"data_dir"`
	LogDir       string `json:"log_dir"`
}

// Config holds the resolved, absolute paths an MDS or DataNode process uses.
type Config struct {
	RootDir      string
	MetadataFile string
	JournalFile  string
	DataDir      string
	LogDir       string
}

// Load reads the config document named by AEGISFS_CONFIG (or DefaultPath
// if unset) and resolves it into a Config.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile reads and resolves the config document at path.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return resolve(doc), nil
}

func resolve(doc document) *Config {
	root := doc.RootDir
	if root == "" {
		root = "."
	}
	root, _ = filepath.Abs(root)

	withDefault := func(v, def string) string {
		if v == "" {
			v = def
		}
		return filepath.Join(root, v)
	}

	return &Config{
		RootDir:      root,
		MetadataFile: withDefault(doc.MetadataFile, DefaultMetadataFile),
		JournalFile:  withDefault(doc.JournalFile, DefaultJournalFile),
		DataDir:      withDefault(doc.DataDir, DefaultDataDir),
		LogDir:       withDefault(doc.LogDir, DefaultLogDir),
	}
}
