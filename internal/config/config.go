// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/paxrun/internal/issue"
	"github.com/invowk/paxrun/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "paxrun"
	// ConfigFileName is the name of the config file inside ConfigDir.
	ConfigFileName = "config.cue"
	// LocalConfigFile is the config file looked up in the working directory.
	LocalConfigFile = "paxrun.cue"
	// EnvPrefix prefixes environment overrides, e.g. PAXRUN_FRAMEWORK_CLEAN.
	EnvPrefix = "PAXRUN"
)

// ErrConfigExists is returned by CreateDefaultConfig when the target file
// exists and overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the paxrun configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// newViper returns a viper instance seeded with every default so that
// environment overrides apply to all keys.
func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("java.executable", d.Java.Executable)
	v.SetDefault("java.vm_options", d.Java.VMOptions)
	v.SetDefault("java.classpath", d.Java.Classpath)
	v.SetDefault("framework.name", string(d.Framework.Name))
	v.SetDefault("framework.system_bundle", d.Framework.SystemBundle)
	v.SetDefault("framework.default_bundles", d.Framework.DefaultBundles)
	v.SetDefault("framework.boot_delegation", d.Framework.BootDelegation)
	v.SetDefault("framework.system_packages", d.Framework.SystemPackages)
	v.SetDefault("framework.start_level", d.Framework.StartLevel)
	v.SetDefault("framework.bundle_level", d.Framework.BundleLevel)
	v.SetDefault("framework.clean", d.Framework.Clean)
	v.SetDefault("framework.no_console", d.Framework.NoConsole)
	v.SetDefault("framework.grace_period", d.Framework.GracePeriod)
	v.SetDefault("bundles", []any{})
	v.SetDefault("properties", []any{})
	v.SetDefault("console.pty", d.Console.PTY)
	v.SetDefault("log.level", string(d.Log.Level))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'paxrun config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Env overrides bypass the schema, so the decoded values are checked again.
	if valid, errs := cfg.IsValid(); !valid {
		ctxErr := issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check PAXRUN_* environment variables for invalid values").
			Wrap(errors.Join(errs...))
		if resolvedPath != "" {
			ctxErr = ctxErr.WithResource(resolvedPath)
		}
		return nil, "", ctxErr.BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath picks the config file to load: the explicit path, then
// ConfigDir/config.cue, then paxrun.cue in the working directory. An empty
// result means defaults only.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'paxrun config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}
	if p := filepath.Join(cfgDir, ConfigFileName); fileExists(p) {
		return p, nil
	}

	local := LocalConfigFile
	if opts.WorkingDir != "" {
		local = filepath.Join(opts.WorkingDir, LocalConfigFile)
	}
	if fileExists(local) {
		return local, nil
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges its
// contents into viper, keeping defaults for absent keys.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.ParseToMap(configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig writes the default configuration to path, or to
// ConfigDir/config.cue when path is empty, and returns the written path.
func CreateDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		cfgDir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(cfgDir, ConfigFileName)
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// GenerateTOML renders the configuration as TOML.
func GenerateTOML(cfg *Config) (string, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return string(out), nil
}

// GenerateCUE generates a CUE representation of the configuration that
// validates against #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// paxrun configuration file\n\n")

	fmt.Fprintf(&sb, "work_dir: %q\n", cfg.WorkDir)

	sb.WriteString("\njava: {\n")
	fmt.Fprintf(&sb, "\texecutable: %q\n", cfg.Java.Executable)
	if cfg.Java.VMOptions != "" {
		fmt.Fprintf(&sb, "\tvm_options: %q\n", cfg.Java.VMOptions)
	}
	if cfg.Java.Classpath != "" {
		fmt.Fprintf(&sb, "\tclasspath: %q\n", cfg.Java.Classpath)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nframework: {\n")
	fmt.Fprintf(&sb, "\tname: %q\n", cfg.Framework.Name)
	if cfg.Framework.SystemBundle != "" {
		fmt.Fprintf(&sb, "\tsystem_bundle: %q\n", cfg.Framework.SystemBundle)
	}
	writeCUEList(&sb, "default_bundles", cfg.Framework.DefaultBundles)
	writeCUEList(&sb, "boot_delegation", cfg.Framework.BootDelegation)
	writeCUEList(&sb, "system_packages", cfg.Framework.SystemPackages)
	fmt.Fprintf(&sb, "\tstart_level: %d\n", cfg.Framework.StartLevel)
	fmt.Fprintf(&sb, "\tbundle_level: %d\n", cfg.Framework.BundleLevel)
	fmt.Fprintf(&sb, "\tclean: %v\n", cfg.Framework.Clean)
	fmt.Fprintf(&sb, "\tno_console: %v\n", cfg.Framework.NoConsole)
	fmt.Fprintf(&sb, "\tgrace_period: %q\n", cfg.Framework.GracePeriod)
	sb.WriteString("}\n")

	if len(cfg.Bundles) > 0 {
		sb.WriteString("\nbundles: [\n")
		for _, b := range cfg.Bundles {
			fmt.Fprintf(&sb, "\t{location: %q", b.Location)
			if b.StartLevel != 0 {
				fmt.Fprintf(&sb, ", start_level: %d", b.StartLevel)
			}
			if b.Autostart != nil {
				fmt.Fprintf(&sb, ", autostart: %v", *b.Autostart)
			}
			sb.WriteString("},\n")
		}
		sb.WriteString("]\n")
	}

	if len(cfg.Properties) > 0 {
		sb.WriteString("\nproperties: [\n")
		for _, p := range cfg.Properties {
			fmt.Fprintf(&sb, "\t{name: %q, value: %q},\n", p.Name, p.Value)
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nconsole: {\n")
	fmt.Fprintf(&sb, "\tpty: %v\n", cfg.Console.PTY)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	return sb.String()
}

func writeCUEList(sb *strings.Builder, name string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\t%s: [", name)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%q", item)
	}
	sb.WriteString("]\n")
}
