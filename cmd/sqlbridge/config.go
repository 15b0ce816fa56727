// Config loading for the sqlbridge CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/sqlbridge/internal/paths"
	"github.com/mesh-intelligence/sqlbridge/pkg/bridge"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyDriver        = "driver"
	cfgKeyDSN           = "dsn"
	cfgKeyDataDir       = "data_dir"
	cfgKeyMetaTable     = "meta_table"
	cfgKeyMigrationsDir = "migrations_dir"

	defaultDriver        = types.DriverSQLite
	defaultMigrationsDir = "migrations"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# sqlbridge CLI configuration

# Database driver
driver: sqlite

# Driver-specific data source name (optional; default is a file in data_dir)
# dsn:

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Reserved schema version table name (optional)
# meta_table: _schema_version

# Directory containing NNN_description.sql migration files
migrations_dir: migrations
`

// loadCLIConfig resolves the config directory and reads config.yaml with
// Viper, creating the directory and a default file on first run. A missing
// config.yaml is not an error.
func loadCLIConfig() (string, *viper.Viper, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return "", nil, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureConfigDir(configDir); err != nil {
		return "", nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return "", nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDriver, defaultDriver)
	v.SetDefault(cfgKeyMigrationsDir, defaultMigrationsDir)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return configDir, v, nil
		}
		return "", nil, fmt.Errorf("read config: %w", err)
	}

	return configDir, v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// openConn builds a types.Config from flags and the loaded config file and
// opens the connection. The caller must defer conn.Close(). Returns the
// resolved data directory for display.
func openConn(v *viper.Viper) (types.Conn, string, error) {
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, "", fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Driver:    v.GetString(cfgKeyDriver),
		DSN:       v.GetString(cfgKeyDSN),
		DataDir:   dataDir,
		MetaTable: v.GetString(cfgKeyMetaTable),
	}
	conn, err := bridge.Open(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	return conn, dataDir, nil
}
