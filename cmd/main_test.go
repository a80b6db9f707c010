package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/jaxxstorm/tagver"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// captureStdout runs fn and returns everything it wrote to os.Stdout.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	output, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(output), runErr
}

// initRepo creates a repository on disk with a single commit carrying the
// given lightweight tags.
func initRepo(t *testing.T, tags ...string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("tagver\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	hash, err := wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	for _, tag := range tags {
		_, err := repo.CreateTag(tag, hash, nil)
		require.NoError(t, err)
	}

	return dir
}

func TestCLIShowVersion(t *testing.T) {
	cli := &CLI{ShowVersion: true}

	output, err := captureStdout(t, cli.Run)
	require.NoError(t, err)

	require.Contains(t, output, "tagver version")
	require.Contains(t, output, "dev") // Default version should be "dev"
	require.Contains(t, output, "commit:")
}

func TestCLIShowVersionJSON(t *testing.T) {
	cli := &CLI{ShowVersion: true, Format: "json"}

	output, err := captureStdout(t, cli.Run)
	require.NoError(t, err)

	var versionInfo map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &versionInfo))

	require.Equal(t, "dev", versionInfo["version"])
	require.Equal(t, "tagver", versionInfo["name"])
	require.Contains(t, versionInfo, "commit")
	require.Contains(t, versionInfo, "date")
}

func TestCLIConfig(t *testing.T) {
	t.Run("Zero value uses defaults", func(t *testing.T) {
		cfg, err := (&CLI{}).config()
		require.NoError(t, err)
		require.Equal(t, tagver.DefaultConfig(), cfg)
	})

	t.Run("All flags", func(t *testing.T) {
		cli := &CLI{
			TagPrefix:                    "v",
			AutoIncrement:                "minor",
			DefaultPreReleaseIdentifiers: "preview.1",
			MinimumMajorMinor:            "2.5",
			IgnoreHeight:                 true,
			BuildMetadata:                "ci.42",
		}

		cfg, err := cli.config()
		require.NoError(t, err)
		require.Equal(t, "v", cfg.TagPrefix)
		require.Equal(t, tagver.Minor, cfg.AutoIncrement)
		require.Equal(t, []string{"preview", "1"}, cfg.DefaultPrereleaseIdentifiers)
		require.Equal(t, &tagver.MajorMinor{Major: 2, Minor: 5}, cfg.MinimumMajorMinor)
		require.True(t, cfg.IgnoreHeight)
		require.Equal(t, "ci.42", cfg.BuildMetadata)
	})

	t.Run("Invalid values", func(t *testing.T) {
		_, err := (&CLI{AutoIncrement: "build"}).config()
		require.ErrorIs(t, err, tagver.ErrInvalidVersionPart)

		_, err = (&CLI{MinimumMajorMinor: "1"}).config()
		require.ErrorIs(t, err, tagver.ErrInvalidMajorMinor)

		_, err = (&CLI{DefaultPreReleaseIdentifiers: "alpha..0"}).config()
		require.ErrorIs(t, err, tagver.ErrInvalidConfig)

		_, err = (&CLI{DefaultPreReleaseIdentifiers: "01.a_b"}).config()
		require.ErrorIs(t, err, tagver.ErrInvalidConfig)
	})
}

func TestCLIRun(t *testing.T) {
	dir := initRepo(t, "v1.2.3")

	t.Run("Text", func(t *testing.T) {
		cli := &CLI{WorkDir: dir, TagPrefix: "v", Verbosity: "quiet"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.Equal(t, "1.2.3\n", output)
	})

	t.Run("Without prefix the tag is not a version", func(t *testing.T) {
		cli := &CLI{WorkDir: dir, Verbosity: "quiet"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.Equal(t, "0.0.0-alpha.0\n", output)
	})

	t.Run("JSON", func(t *testing.T) {
		cli := &CLI{WorkDir: dir, TagPrefix: "v", Format: "json", Verbosity: "quiet"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.Contains(t, output, `"version": "1.2.3"`)
		require.JSONEq(t, `{
			"version": "1.2.3",
			"major": 1,
			"minor": 2,
			"patch": 3,
			"pre_release": [],
			"build_metadata": null,
			"height": 0,
			"is_from_tag": true
		}`, output)
	})

	t.Run("YAML", func(t *testing.T) {
		cli := &CLI{WorkDir: dir, TagPrefix: "v", Format: "yaml", BuildMetadata: "ci.7", Verbosity: "quiet"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)

		var report tagver.Report
		require.NoError(t, yaml.Unmarshal([]byte(output), &report))
		require.Equal(t, "1.2.3+ci.7", report.Version)
		require.Empty(t, report.PreRelease)
		require.NotNil(t, report.BuildMetadata)
		require.Equal(t, "ci.7", *report.BuildMetadata)
		require.True(t, report.IsFromTag)
	})
}

func TestCLIRunOutsideRepository(t *testing.T) {
	dir := t.TempDir()

	t.Run("Strict", func(t *testing.T) {
		cli := &CLI{WorkDir: dir, Verbosity: "quiet"}

		_, err := captureStdout(t, cli.Run)
		require.Error(t, err)
		require.ErrorIs(t, err, tagver.ErrRepositoryNotFound)
		require.Contains(t, err.Error(), "is not a valid Git working directory")
	})

	t.Run("Fallback", func(t *testing.T) {
		cli := &CLI{WorkDir: dir, Fallback: true, MinimumMajorMinor: "3.1", Verbosity: "quiet"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.Equal(t, "3.1.0-alpha.0\n", output)
	})
}

func TestCLIRunInvalidVerbosity(t *testing.T) {
	cli := &CLI{Verbosity: "loud"}

	err := cli.Run()
	require.ErrorIs(t, err, tagver.ErrInvalidConfig)
}
