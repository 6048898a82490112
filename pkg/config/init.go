package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/rfmesh/hes/internal/mqttctl"
)

// GeneratedAdminPassword is set by InitConfig/InitConfigToPath to the
// random MQTT broker password generated for the bootstrap admin
// credential, so callers can print it once. Empty if no file was written
// this run (force=false and a file already existed).
var GeneratedAdminPassword string

// InitConfig writes a sample configuration file at the default location,
// generating a random bootstrap MQTT broker password. Returns the path
// written to.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a sample configuration file at path, generating
// a random bootstrap MQTT broker password, unless a file already exists
// there and force is false.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	password, err := randomPassword()
	if err != nil {
		return fmt.Errorf("failed to generate admin password: %w", err)
	}
	hash, err := mqttctl.HashBrokerPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	cfg := GetDefaultConfig()
	cfg.Admin.MQTTPasswordHash = hash

	if err := SaveConfig(cfg, path); err != nil {
		return err
	}

	GeneratedAdminPassword = password
	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
