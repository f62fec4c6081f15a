// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package directory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// UserConfigPathEnv if set, will load the user config from that path.
	UserConfigPathEnv = "BP_USER_CONFIG_PATH"

	PortKey               = "port"
	BaudKey               = "baud"
	TranslationDirKey     = "translation.dir"
	TranslationSourceKey  = "translation.source"
	TranslationExcludeKey = "translation.exclude"
	TranslationHeaderKey  = "translation.header"

	DefaultBaud = 115200
)

// ConfigKeys lists the keys understood by 'bp config'.
func ConfigKeys() []string {
	return []string{
		PortKey,
		BaudKey,
		TranslationDirKey,
		TranslationSourceKey,
		TranslationExcludeKey,
		TranslationHeaderKey,
	}
}

func GetUserConfigPath() (string, error) {
	if path, ok := os.LookupEnv(UserConfigPathEnv); ok {
		return path, nil
	}

	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homedir, ".config", "bp", "config.yaml"), nil
}

func GetUserConfig() (*viper.Viper, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config path: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigType("yaml")
	cfg.SetConfigFile(path)
	cfg.SetDefault(BaudKey, DefaultBaud)
	cfg.SetDefault(TranslationDirKey, "src/translation")
	cfg.SetDefault(TranslationSourceKey, "src")
	cfg.SetDefault(TranslationExcludeKey, []string{"src/translation"})
	cfg.SetDefault(TranslationHeaderKey, "src/translation/en-us.h")
	if _, err := os.Stat(path); err == nil {
		if err := cfg.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read user config: %w", err)
		}
	}
	return cfg, nil
}

// TranslationConfig is the 'translation' section of the user config.
type TranslationConfig struct {
	Dir     string   `mapstructure:"dir" yaml:"dir"`
	Source  string   `mapstructure:"source" yaml:"source"`
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	Header  string   `mapstructure:"header" yaml:"header"`
}

// GetTranslationConfig decodes the translation section, with defaults
// applied.
func GetTranslationConfig(cfg *viper.Viper) (*TranslationConfig, error) {
	res := &TranslationConfig{
		Dir:    cfg.GetString(TranslationDirKey),
		Source: cfg.GetString(TranslationSourceKey),
		Header: cfg.GetString(TranslationHeaderKey),
	}
	if err := mapstructure.WeakDecode(cfg.Get(TranslationExcludeKey), &res.Exclude); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", TranslationExcludeKey, err)
	}
	return res, nil
}

func WriteConfig(cfg *viper.Viper) error {
	file := cfg.ConfigFileUsed()
	dir := filepath.Dir(file)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmpFile := filepath.Join(filepath.Dir(file), ".config.tmp.yaml")
	if err := cfg.WriteConfigAs(tmpFile); err != nil {
		return err
	}
	defer os.Remove(tmpFile)

	return os.Rename(tmpFile, file)
}
