// Package config loads kvault's service configuration from a directory
// containing either a single services.yaml (takes precedence) or one
// <service>.json per service, then applies environment overrides in the
// style of the teacher's cobra persistent-flag/env conventions.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/kvault/pkg/errs"
)

// StorageConfig selects and parameterises the snapshot storage backend.
type StorageConfig struct {
	Type  string      `yaml:"type" json:"type"` // "local" or "s3"
	Local LocalConfig `yaml:"local" json:"local"`
	S3    S3Config    `yaml:"s3" json:"s3"`
}

// LocalConfig parameterises the local filesystem backend.
type LocalConfig struct {
	BaseDir string `yaml:"base_dir" json:"base_dir"`
}

// S3Config parameterises the S3-compatible backend.
type S3Config struct {
	AWSAccessKeyID     string `yaml:"aws_access_key_id" json:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" json:"aws_secret_access_key"`
	Region             string `yaml:"region" json:"region"`
	Endpoint           string `yaml:"endpoint" json:"endpoint"`
	Bucket             string `yaml:"bucket" json:"bucket"`
}

// AuthConfig parameterises the identity-provider API client.
type AuthConfig struct {
	AuthURL      string `yaml:"auth_url" json:"auth_url"`
	Realm        string `yaml:"realm" json:"realm"`
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	VerifySSL    bool   `yaml:"verify_ssl" json:"verify_ssl"`
}

// KeycloakConfig wraps a service's identity-provider auth settings.
type KeycloakConfig struct {
	Auth AuthConfig `yaml:"auth" json:"auth"`
}

// ServiceConfig is one configured service: a Keycloak realm backed by a
// named storage target.
type ServiceConfig struct {
	Name     string         `yaml:"name" json:"name"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Keycloak KeycloakConfig `yaml:"keycloak" json:"keycloak"`
}

// Config is the fully loaded, override-applied configuration: one or
// more named services.
type Config struct {
	Services []ServiceConfig
}

// servicesFile mirrors services.yaml's top-level shape: a map of service
// name to its settings.
type servicesFile struct {
	Services map[string]struct {
		Storage  StorageConfig  `yaml:"storage" json:"storage"`
		Keycloak KeycloakConfig `yaml:"keycloak" json:"keycloak"`
	} `yaml:"services" json:"services"`
}

// Load reads dir/services.yaml if present, else one dir/<service>.json per
// file, then applies environment overrides.
func Load(dir string) (*Config, error) {
	yamlPath := filepath.Join(dir, "services.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		cfg, err := loadYAML(yamlPath)
		if err != nil {
			return nil, err
		}
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	cfg, err := loadJSONDir(dir)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrConfig, path, err)
	}
	var file servicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", errs.ErrConfig, path, err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("%w: %s defines no services", errs.ErrConfig, path)
	}

	cfg := &Config{}
	for name, svc := range file.Services {
		cfg.Services = append(cfg.Services, ServiceConfig{Name: name, Storage: svc.Storage, Keycloak: svc.Keycloak})
	}
	return cfg, nil
}

func loadJSONDir(dir string) (*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config dir %s: %v", errs.ErrConfig, dir, err)
	}

	cfg := &Config{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrConfig, path, err)
		}
		var svc struct {
			Storage  StorageConfig  `json:"storage"`
			Keycloak KeycloakConfig `json:"keycloak"`
		}
		if err := json.Unmarshal(data, &svc); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", errs.ErrConfig, path, err)
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		cfg.Services = append(cfg.Services, ServiceConfig{Name: name, Storage: svc.Storage, Keycloak: svc.Keycloak})
	}
	if len(cfg.Services) == 0 {
		return nil, fmt.Errorf("%w: no <service>.json files found under %s", errs.ErrConfig, dir)
	}
	return cfg, nil
}

// applyEnvOverrides overlays KEYCLOAK_-prefixed environment variables onto
// every configured service's auth settings. A single process-wide set of
// Keycloak credentials is the common case; per-service JSON files remain
// the escape hatch for mixed-realm deployments.
func applyEnvOverrides(cfg *Config) {
	authURL, hasAuthURL := os.LookupEnv("KEYCLOAK_AUTH_URL")
	realm, hasRealm := os.LookupEnv("KEYCLOAK_REALM")
	clientID, hasClientID := os.LookupEnv("KEYCLOAK_CLIENT_ID")
	clientSecret, hasClientSecret := os.LookupEnv("KEYCLOAK_CLIENT_SECRET")
	verifySSL, hasVerifySSL := os.LookupEnv("KEYCLOAK_VERIFY_SSL")

	for i := range cfg.Services {
		auth := &cfg.Services[i].Keycloak.Auth
		if hasAuthURL {
			auth.AuthURL = authURL
		}
		if hasRealm {
			auth.Realm = realm
		}
		if hasClientID {
			auth.ClientID = clientID
		}
		if hasClientSecret {
			auth.ClientSecret = clientSecret
		}
		if hasVerifySSL {
			if parsed, err := strconv.ParseBool(verifySSL); err == nil {
				auth.VerifySSL = parsed
			}
		}
	}
}

// ConfigPath resolves the config directory: BACKUP_RESTORE_CONFIG_PATH
// overrides the supplied default.
func ConfigPath(flagValue string) string {
	if path, ok := os.LookupEnv("BACKUP_RESTORE_CONFIG_PATH"); ok {
		return path
	}
	return flagValue
}

// ServerPort resolves the HTTP port for the metrics/health server:
// BACKUP_RESTORE_SERVER_PORT overrides the supplied default.
func ServerPort(flagValue string) string {
	if port, ok := os.LookupEnv("BACKUP_RESTORE_SERVER_PORT"); ok {
		return port
	}
	return flagValue
}
