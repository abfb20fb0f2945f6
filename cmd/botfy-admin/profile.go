// ABOUTME: CLI profile (TOML) and bearer token storage under $XDG_CONFIG_HOME/botfy
// ABOUTME: BOTFY_TOKEN overrides the token file; the token file is written 0600

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile is the persistent CLI state besides the token.
type Profile struct {
	APIURL   string `toml:"api_url"`
	TenantID string `toml:"tenant_id"`
	Email    string `toml:"email,omitempty"`
	Locale   string `toml:"locale,omitempty"`
}

// configDir returns $XDG_CONFIG_HOME/botfy, falling back to ~/.config/botfy.
func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".botfy"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "botfy")
}

func profilePath() string {
	return filepath.Join(configDir(), "cli.toml")
}

func tokenPath() string {
	return filepath.Join(configDir(), "token")
}

// loadProfile reads path. A missing file yields an empty profile.
func loadProfile(path string) (*Profile, error) {
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &p, nil
		}
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	return &p, nil
}

func (p *Profile) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding profile: %w", err)
	}
	return f.Close()
}

// loadToken returns BOTFY_TOKEN or the saved token file contents.
func loadToken() string {
	if t := os.Getenv("BOTFY_TOKEN"); t != "" {
		return strings.TrimSpace(t)
	}
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(token string) error {
	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

func clearToken() error {
	err := os.Remove(tokenPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
