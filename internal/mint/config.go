package mint

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/SparrowTek/cashu-mint/internal/database"
	"github.com/SparrowTek/cashu-mint/internal/utils"
)

const ConfigFileName string = "config.toml"
const ConfigDirName string = "nutmix"
const LogFileName string = "nutmix.log"

// readConfigFile reads the on-disk config.toml from the user's config
// directory, creating an empty one first if it's missing.
func readConfigFile() ([]byte, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("os.UserConfigDir: %w", err)
	}

	projectDir := filepath.Join(dir, ConfigDirName)
	if err := utils.CreateDirectoryAndPath(projectDir, ConfigFileName); err != nil {
		return nil, fmt.Errorf("utils.CreateDirectoryAndPath(%s, %s): %w", projectDir, ConfigFileName, err)
	}

	return os.ReadFile(filepath.Join(projectDir, ConfigFileName))
}

// SetUpConfigDB loads the mint's config from the database, falling back to
// the on-disk config.toml (and from there to hardcoded defaults) the first
// time the mint runs and no row exists yet. Once seeded, the database row is
// authoritative and the file is never consulted again. Environment
// variables are not considered here.
func SetUpConfigDB(db database.MintDB) (utils.Config, error) {
	config, err := db.GetConfig()
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return config, fmt.Errorf("db.GetConfig(): %w", err)
	}

	file, ferr := readConfigFile()
	if ferr != nil {
		return config, fmt.Errorf("readConfigFile(): %w", ferr)
	}
	if err := toml.Unmarshal(file, &config); err != nil {
		return config, fmt.Errorf("toml.Unmarshal(file, &config): %w", err)
	}

	if len(config.NETWORK) == 0 && len(config.MINT_LIGHTNING_BACKEND) == 0 {
		config.Default()
	}

	if err := db.SetConfig(config); err != nil {
		return config, fmt.Errorf("db.SetConfig(config): %w", err)
	}

	return config, nil
}
