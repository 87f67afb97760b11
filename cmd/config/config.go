// Package config loads compile options from flags, KB_ environment
// variables, a config file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/grovetools/kb/pkg/service"
)

// FileName is looked up in the projects folder when --config is not given.
const FileName = "kb.yaml"

// AddGlobalFlags registers the flags every subcommand understands.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "config file (default is <projects-folder>/kb.yaml, then $HOME/.config/kb/config.yaml)")
	cmd.PersistentFlags().String("projects-folder", "", "folder holding one sub-folder per project")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "log progress")
	cmd.PersistentFlags().Bool("debug", false, "debug logging, raw HTML dumps and a run report")
}

// AddCompileFlags registers the flags that map onto service.Options.
func AddCompileFlags(fs *pflag.FlagSet) {
	d := service.DefaultOptions()
	fs.Bool("use-cache", d.UseCache, "reuse content extracted by earlier runs")
	fs.Int("invalidate-cache-after-minutes", d.InvalidateCacheAfterMinutes, "cache lifetime in minutes, 0 disables expiry")
	fs.Bool("invalidate-cache-on-entry-change", d.InvalidateCacheOnEntryChange, "re-extract entries whose definition changed")
	fs.String("output-file-extension", d.OutputFileExtension, "extension of the assembled output files")
	fs.String("output-mode", d.OutputMode, "single, pages, index or none")
	fs.String("output-folder", "", "write project output to <output-folder>/<project> instead of the project folder")
	fs.String("pandoc-path", d.PandocPath, "pandoc executable used by the wikimedia extractor")
	fs.String("chrome-executable", d.ChromeExecutable, "Chrome executable used for browser rendering")
	fs.Bool("minify-whole-document", d.MinifyWholeDocument, "collapse whitespace between tags of assembled documents")
	fs.String("output-tree-file", "", "write the extraction tree as YAML to this file")
	fs.String("github-client", d.GitHubClient, "GitHub lookups through the REST api or the gh CLI")
	fs.Float64("http-rate", d.HTTPRate, "HTTP requests per second, 0 for unlimited")
	fs.Int("concurrency", d.Concurrency, "entries resolved and extracted in parallel")
	fs.Bool("watch", false, "recompile when a project's entries file changes")
}

// Key converts a flag name into its option key.
func Key(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// Load resolves the options. flags may be nil.
func Load(v *viper.Viper, flags *pflag.FlagSet) (service.Options, error) {
	defaults := map[string]any{}
	if err := mapstructure.Decode(service.DefaultOptions(), &defaults); err != nil {
		return service.Options{}, fmt.Errorf("decode defaults: %w", err)
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("KB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(Key(f.Name), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return service.Options{}, bindErr
		}
	}

	if err := readConfigFile(v); err != nil {
		return service.Options{}, err
	}

	var opts service.Options
	if err := v.Unmarshal(&opts); err != nil {
		return service.Options{}, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}

func readConfigFile(v *viper.Viper) error {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	if folder := v.GetString("projects_folder"); folder != "" {
		file := filepath.Join(folder, FileName)
		if _, err := os.Stat(file); err == nil {
			v.SetConfigFile(file)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", file, err)
			}
			return nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(filepath.Join(home, ".config", "kb"))
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
