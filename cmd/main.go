package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/carlmjohnson/versioninfo"
	"github.com/jaxxstorm/tagver"
	"gopkg.in/yaml.v3"
)

// Version will be set by build process
var Version = "dev"

// defaultConfigPaths are read in order, later files overriding earlier ones.
var defaultConfigPaths = []string{"~/.config/tagver/config.toml", ".tagver.toml"}

type CLI struct {
	WorkDir                      string          `arg:"" optional:"" default:"." help:"Working directory to analyze (default: current directory)"`
	TagPrefix                    string          `short:"t" env:"TAGVER_TAGPREFIX" help:"Tag prefix to filter tags (e.g., 'v' for 'v1.0.0')"`
	AutoIncrement                string          `short:"a" env:"TAGVER_AUTOINCREMENT" default:"patch" enum:"major,minor,patch" help:"Part to increment past an RTM tag (major, minor, patch)"`
	DefaultPreReleaseIdentifiers string          `short:"p" name:"default-pre-release-identifiers" env:"TAGVER_DEFAULTPRERELEASEIDENTIFIERS" default:"alpha.0" help:"Default pre-release identifiers (e.g., 'alpha.0')"`
	MinimumMajorMinor            string          `short:"m" env:"TAGVER_MINIMUMMAJORMINOR" help:"Minimum major.minor version (e.g., '1.0')"`
	IgnoreHeight                 bool            `short:"i" env:"TAGVER_IGNOREHEIGHT" help:"Ignore height in version calculation"`
	BuildMetadata                string          `short:"b" env:"TAGVER_BUILDMETADATA" help:"Build metadata to append to versions"`
	Verbosity                    string          `short:"v" env:"TAGVER_VERBOSITY" default:"normal" enum:"quiet,normal,verbose,info,debug,trace" help:"Log verbosity (quiet, normal, verbose, debug, trace)"`
	Format                       string          `short:"f" env:"TAGVER_FORMAT" default:"text" enum:"text,json,yaml" help:"Output format"`
	Fallback                     bool            `env:"TAGVER_FALLBACK" help:"Print the default version instead of failing outside a Git repository"`
	Config                       kong.ConfigFlag `help:"Load flag values from a TOML file (flags and TAGVER_* variables take precedence)"`
	ShowVersion                  bool            `help:"Show version information" name:"version"`
}

func parserOptions(configPaths ...string) []kong.Option {
	return []kong.Option{
		kong.Name("tagver"),
		kong.Description("Calculate version numbers from Git tags"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(TOML, configPaths...),
	}
}

func main() {
	var cli CLI

	kong.Parse(&cli, parserOptions(defaultConfigPaths...)...)

	err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *CLI) Run() error {
	if c.ShowVersion {
		return c.showVersion()
	}

	verbosity, err := tagver.ParseVerbosity(c.Verbosity)
	if err != nil {
		return err
	}
	tagver.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: verbosity.Level(),
	})))

	cfg, err := c.config()
	if err != nil {
		return err
	}

	return c.calculateVersion(cfg)
}

// config builds the calculation policy from the parsed flags.
func (c *CLI) config() (tagver.Config, error) {
	cfg := tagver.DefaultConfig()
	cfg.TagPrefix = c.TagPrefix
	cfg.BuildMetadata = c.BuildMetadata
	cfg.IgnoreHeight = c.IgnoreHeight

	if c.AutoIncrement != "" {
		part, err := tagver.ParseVersionPart(c.AutoIncrement)
		if err != nil {
			return cfg, err
		}
		cfg.AutoIncrement = part
	}

	if c.DefaultPreReleaseIdentifiers != "" {
		ids, err := tagver.ParsePrereleaseIdentifiers(c.DefaultPreReleaseIdentifiers)
		if err != nil {
			return cfg, err
		}
		cfg.DefaultPrereleaseIdentifiers = ids
	}

	if c.MinimumMajorMinor != "" {
		floor, err := tagver.ParseMajorMinor(c.MinimumMajorMinor)
		if err != nil {
			return cfg, err
		}
		cfg.MinimumMajorMinor = &floor
	}

	return cfg, nil
}

func (c *CLI) calculateVersion(cfg tagver.Config) error {
	workDir := c.WorkDir
	if workDir == "" {
		workDir = "."
	}

	calculate := tagver.Calculate
	if c.Fallback {
		calculate = tagver.CalculateWithFallback
	}

	result, err := calculate(workDir, cfg)
	if err != nil {
		if errors.Is(err, tagver.ErrRepositoryNotFound) {
			return fmt.Errorf("'%s' is not a valid Git working directory: %w", workDir, err)
		}
		return fmt.Errorf("calculating version: %w", err)
	}

	return c.render(result)
}

func (c *CLI) render(result *tagver.CalculationResult) error {
	switch c.Format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Report())
	case "yaml":
		out, err := yaml.Marshal(result.Report())
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	default:
		fmt.Println(result.Version)
		return nil
	}
}

func (c *CLI) showVersion() error {
	commit, date := buildCommit()

	if c.Format == "json" {
		versionInfo := map[string]string{
			"version": Version,
			"name":    "tagver",
			"commit":  commit,
			"date":    date,
		}
		return json.NewEncoder(os.Stdout).Encode(versionInfo)
	}

	fmt.Printf("tagver version %s\ncommit: %s (%s)\n", Version, commit, date)
	return nil
}

// buildCommit describes the revision the binary was built from, as recorded
// by the Go toolchain.
func buildCommit() (string, string) {
	commit := versioninfo.Revision
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if versioninfo.DirtyBuild {
		commit += "-dirty"
	}

	date := "unknown"
	if !versioninfo.LastCommit.IsZero() {
		date = versioninfo.LastCommit.UTC().Format(time.RFC3339)
	}

	return commit, date
}
