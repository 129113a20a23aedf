package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	appendix "github.com/integral05/word-appendix-manager"
	"github.com/integral05/word-appendix-manager/internal/fileutil"
	"github.com/integral05/word-appendix-manager/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
)

// defaultKeepBackups is how many snapshots per document survive pruning
// after a committed run.
const defaultKeepBackups = 5

// fileConfig mirrors RunConfig in the YAML config file, plus CLI-only
// retention policy. Flags override file values; file values override
// defaults.
type fileConfig struct {
	Scheme       string `yaml:"scheme"`
	Mode         string `yaml:"mode"`
	DPI          int    `yaml:"dpi"`
	AutoBackup   *bool  `yaml:"autoBackup"`
	BackupDir    string `yaml:"backupDir"`
	KeepBackups  int    `yaml:"keepBackups"`
	MaxPDFSizeMB int    `yaml:"maxPdfSizeMb"`
	Workers      int    `yaml:"workers"`
}

// loadConfig reads the config file by path or by name. A name is searched
// in the working directory and under the user config dir. Empty nameOrPath
// returns an empty config (defaults apply).
func loadConfig(nameOrPath string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if nameOrPath == "" {
		return cfg, nil
	}

	path := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		resolved, err := resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return cfg, nil
}

// resolveConfigPath searches standard locations for a named config.
func resolveConfigPath(name string) (string, error) {
	candidates := []string{name + ".yaml", name + ".yml"}
	if confDir, err := os.UserConfigDir(); err == nil {
		for _, c := range []string{name + ".yaml", name + ".yml"} {
			candidates = append(candidates, filepath.Join(confDir, "appendixctl", c))
		}
	}
	for _, c := range candidates {
		if fileutil.FileExists(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, name)
}

// buildRunConfig merges defaults, file config, and flags in that order.
func buildRunConfig(flags *cliFlags, file *fileConfig) (appendix.RunConfig, int) {
	cfg := appendix.DefaultRunConfig()
	keep := defaultKeepBackups

	if file.Scheme != "" {
		cfg.NumberingScheme = file.Scheme
	}
	if file.Mode != "" {
		cfg.FailureMode = file.Mode
	}
	if file.DPI != 0 {
		cfg.ImageDPI = file.DPI
	}
	if file.AutoBackup != nil {
		cfg.AutoBackup = *file.AutoBackup
	}
	if file.BackupDir != "" {
		cfg.BackupDir = file.BackupDir
	}
	if file.MaxPDFSizeMB != 0 {
		cfg.MaxPDFSizeMB = file.MaxPDFSizeMB
	}
	if file.Workers != 0 {
		cfg.RenderWorkers = file.Workers
	}
	if file.KeepBackups != 0 {
		keep = file.KeepBackups
	}

	set := flags.set
	if set.Changed("scheme") {
		cfg.NumberingScheme = flags.scheme
	}
	if set.Changed("mode") {
		cfg.FailureMode = flags.mode
	}
	if set.Changed("dpi") {
		cfg.ImageDPI = flags.dpi
	}
	if set.Changed("no-backup") {
		cfg.AutoBackup = !flags.noBackup
	}
	if set.Changed("backup-dir") {
		cfg.BackupDir = flags.backupDir
	}
	if set.Changed("workers") {
		cfg.RenderWorkers = flags.workers
	}
	if set.Changed("keep-backups") {
		keep = flags.keepBackups
	}
	return cfg, keep
}
