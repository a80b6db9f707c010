// Package tagver calculates semantic versions from Git tags and commit history.
//
// The version of a commit is taken from the nearest tag on its first-parent
// lineage. Commits past an RTM tag get the next version with the default
// pre-release identifiers and the height appended, commits past a
// pre-release tag get the height appended to its identifiers.
package tagver

import (
	"errors"
	"fmt"
	"strconv"
)

// Calculate determines the version of HEAD in the repository containing
// workDir. It fails with ErrRepositoryNotFound when workDir is not inside a
// Git repository.
func Calculate(workDir string, cfg Config) (*CalculationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := Discover(workDir)
	if err != nil {
		return nil, err
	}

	result, err := CalculateRepository(repo, cfg)
	if err != nil {
		return nil, err
	}
	result.WorkDir = workDir

	return result, nil
}

// CalculateWithFallback is like Calculate but returns the default version
// when workDir is not inside a Git repository.
func CalculateWithFallback(workDir string, cfg Config) (*CalculationResult, error) {
	result, err := Calculate(workDir, cfg)
	if errors.Is(err, ErrRepositoryNotFound) {
		log().Warn("No Git repository found, using default version", "path", workDir)
		return &CalculationResult{
			Version: applyPolicy(DefaultVersion(cfg.DefaultPrereleaseIdentifiers), cfg, nil, 0),
			WorkDir: workDir,
		}, nil
	}
	return result, err
}

// CalculateRepository determines the version of HEAD in repo.
func CalculateRepository(repo Repository, cfg Config) (*CalculationResult, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log().Debug("Using configuration", "config", cfg)

	shallow, err := repo.IsShallow()
	if err != nil {
		return nil, fmt.Errorf("checking for shallow clone: %w", err)
	}
	if shallow {
		log().Warn("Shallow repository detected. Version calculation may be incorrect. Fetch full history with 'git fetch --unshallow'.")
	}

	head, ok, err := repo.HeadCommit()
	if err != nil {
		return nil, err
	}
	if !ok {
		version := applyPolicy(DefaultVersion(cfg.DefaultPrereleaseIdentifiers), cfg, nil, 0)
		log().Info("No commits found, using default version", "version", version.String())
		return &CalculationResult{Version: version}, nil
	}

	refs, err := repo.TagReferences(cfg.TagPrefix)
	if err != nil {
		return nil, err
	}

	catalogue, invalid := BuildTagCatalogue(refs, cfg.TagPrefix)
	for _, name := range invalid {
		log().Debug("Ignoring non-version tag", "tag", name)
	}

	tag, height, err := WalkToTag(repo, head, catalogue)
	if err != nil {
		return nil, fmt.Errorf("walking commit history: %w", err)
	}

	if tag != nil {
		log().Debug("Found version tag", "tag", tag.TagName, "version", tag.Version.String(), "height", height)
	} else {
		log().Debug("No version tag found in first-parent history", "height", height)
	}

	version, isFromTag := Synthesize(tag, height, cfg)
	log().Info("Calculated version", "version", version.String(), "height", height, "from_tag", isFromTag)

	return &CalculationResult{
		Version:   version,
		Height:    height,
		IsFromTag: isFromTag,
	}, nil
}

// Synthesize builds the final version from the tag found by the walk (nil
// when none was found), the walked height and the policy in cfg.
func Synthesize(tag *VersionTag, height int, cfg Config) (Version, bool) {
	effectiveHeight := height
	if cfg.IgnoreHeight {
		effectiveHeight = 0
	}

	var version Version
	switch {
	case tag == nil:
		version = DefaultVersion(cfg.DefaultPrereleaseIdentifiers)
		if effectiveHeight > 0 {
			version.Prerelease = append(version.Prerelease, strconv.Itoa(effectiveHeight))
		}
	case effectiveHeight == 0:
		version = tag.Version.clone()
	default:
		switch tag.Version.Kind() {
		case KindPrerelease:
			version = tag.Version.WithPrereleaseHeight(effectiveHeight)
		case KindRTM:
			version = tag.Version.WithRTMHeight(effectiveHeight, cfg.AutoIncrement, cfg.DefaultPrereleaseIdentifiers)
		}
	}

	return applyPolicy(version, cfg, tag, height), tag != nil && height == 0
}

// applyPolicy applies the minimum major.minor floor and merges build
// metadata. height is the walked height, not the one used for synthesis.
func applyPolicy(version Version, cfg Config, tag *VersionTag, height int) Version {
	exactTag := tag != nil && height == 0

	if cfg.MinimumMajorMinor != nil && !exactTag {
		floored := version.ApplyMinimum(*cfg.MinimumMajorMinor, cfg.DefaultPrereleaseIdentifiers)
		if !floored.Equal(version) {
			log().Debug("Bumping version to minimum major.minor", "version", version.String(), "minimum", cfg.MinimumMajorMinor.String())
		}
		version = floored
	}

	var tagMetadata string
	if tag != nil {
		tagMetadata = tag.Version.BuildMetadata
	}
	if tagMetadata != "" || cfg.BuildMetadata != "" {
		// Moving past a tag strips its build metadata.
		if !exactTag {
			tagMetadata = ""
		}
		version = version.WithMergedBuildMetadata(tagMetadata, cfg.BuildMetadata)
	}

	return version
}
