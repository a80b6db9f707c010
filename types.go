package tagver

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// VersionPart selects which part of an RTM version is bumped once commits
// are made past its tag.
type VersionPart int

const (
	Patch VersionPart = iota
	Minor
	Major
)

func (p VersionPart) String() string {
	switch p {
	case Major:
		return "major"
	case Minor:
		return "minor"
	default:
		return "patch"
	}
}

// ParseVersionPart parses "major", "minor" or "patch" (case-insensitive).
func ParseVersionPart(s string) (VersionPart, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "patch":
		return Patch, nil
	default:
		return Patch, fmt.Errorf("%w: %q", ErrInvalidVersionPart, s)
	}
}

// MajorMinor is a major.minor floor for calculated versions.
type MajorMinor struct {
	Major uint64
	Minor uint64
}

// ParseMajorMinor parses a floor written as "major.minor", e.g. "1.2".
func ParseMajorMinor(s string) (MajorMinor, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 {
		return MajorMinor{}, fmt.Errorf("%w: expected format 'major.minor', got %q", ErrInvalidMajorMinor, s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return MajorMinor{}, fmt.Errorf("%w: invalid major version %q", ErrInvalidMajorMinor, parts[0])
	}
	minor, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return MajorMinor{}, fmt.Errorf("%w: invalid minor version %q", ErrInvalidMajorMinor, parts[1])
	}

	return MajorMinor{Major: major, Minor: minor}, nil
}

func (m MajorMinor) String() string {
	return fmt.Sprintf("%d.%d", m.Major, m.Minor)
}

// ParsePrereleaseIdentifiers splits a dot-separated list such as "alpha.0"
// and checks each identifier is valid SemVer.
func ParsePrereleaseIdentifiers(s string) ([]string, error) {
	ids := strings.Split(strings.TrimSpace(s), ".")
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: empty pre-release identifier in %q", ErrInvalidConfig, s)
		}
		if err := validPrereleaseIdentifier(id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return ids, nil
}

// Verbosity controls how much diagnostic logging the CLI emits.
type Verbosity int

const (
	VerbosityQuiet Verbosity = iota
	VerbosityNormal
	VerbosityVerbose
	VerbosityDebug
	VerbosityTrace
)

// ParseVerbosity parses quiet, normal, verbose (or info), debug and trace.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return VerbosityQuiet, nil
	case "normal", "":
		return VerbosityNormal, nil
	case "verbose", "info":
		return VerbosityVerbose, nil
	case "debug":
		return VerbosityDebug, nil
	case "trace":
		return VerbosityTrace, nil
	default:
		return VerbosityNormal, fmt.Errorf("%w: invalid verbosity level %q", ErrInvalidConfig, s)
	}
}

// Level maps v onto a slog level. Trace sits below debug.
func (v Verbosity) Level() slog.Level {
	switch v {
	case VerbosityQuiet:
		return slog.LevelError
	case VerbosityVerbose:
		return slog.LevelInfo
	case VerbosityDebug:
		return slog.LevelDebug
	case VerbosityTrace:
		return slog.LevelDebug - 4
	default:
		return slog.LevelWarn
	}
}

// Config is the versioning policy. It is only read during a calculation.
type Config struct {
	// TagPrefix must be present on a tag for it to be considered. The prefix
	// is stripped before parsing. Empty accepts every tag.
	TagPrefix string

	// AutoIncrement is the part bumped for commits past an RTM tag.
	AutoIncrement VersionPart

	// DefaultPrereleaseIdentifiers are used whenever no concrete pre-release
	// identifiers apply. Must not be empty.
	DefaultPrereleaseIdentifiers []string

	// MinimumMajorMinor is an optional floor.
	MinimumMajorMinor *MajorMinor

	// BuildMetadata is merged into the calculated version when set.
	BuildMetadata string

	// IgnoreHeight calculates as if the current commit were the tagged one.
	IgnoreHeight bool
}

// DefaultConfig returns the default policy: no tag prefix, patch increments
// and "alpha.0" pre-release identifiers.
func DefaultConfig() Config {
	return Config{
		AutoIncrement:                Patch,
		DefaultPrereleaseIdentifiers: []string{"alpha", "0"},
	}
}

// Validate checks the invariants the calculation relies on.
func (c Config) Validate() error {
	if len(c.DefaultPrereleaseIdentifiers) == 0 {
		return fmt.Errorf("%w: default pre-release identifiers must not be empty", ErrInvalidConfig)
	}
	for _, id := range c.DefaultPrereleaseIdentifiers {
		if id == "" {
			return fmt.Errorf("%w: default pre-release identifiers must not contain empty values", ErrInvalidConfig)
		}
		if err := validPrereleaseIdentifier(id); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.AutoIncrement < Patch || c.AutoIncrement > Major {
		return fmt.Errorf("%w: %d", ErrInvalidVersionPart, c.AutoIncrement)
	}
	return nil
}

// LogValue lets the configuration be logged as a group.
func (c Config) LogValue() slog.Value {
	minimum := ""
	if c.MinimumMajorMinor != nil {
		minimum = c.MinimumMajorMinor.String()
	}
	return slog.GroupValue(
		slog.String("tag_prefix", c.TagPrefix),
		slog.String("auto_increment", c.AutoIncrement.String()),
		slog.String("default_pre_release_identifiers", strings.Join(c.DefaultPrereleaseIdentifiers, ".")),
		slog.String("minimum_major_minor", minimum),
		slog.String("build_metadata", c.BuildMetadata),
		slog.Bool("ignore_height", c.IgnoreHeight),
	)
}

// CalculationResult is the outcome of a version calculation.
type CalculationResult struct {
	Version Version

	// Height is the number of first-parent commits walked before a tagged
	// commit was found, or to the root when none was found. It is reported
	// even when Config.IgnoreHeight suppresses it in the version.
	Height int

	// IsFromTag is true only when the current commit itself carries the tag.
	IsFromTag bool

	WorkDir string
}

func (r CalculationResult) String() string {
	return r.Version.String()
}

// Report is the structured rendering of a CalculationResult.
type Report struct {
	Version       string   `json:"version" yaml:"version"`
	Major         uint64   `json:"major" yaml:"major"`
	Minor         uint64   `json:"minor" yaml:"minor"`
	Patch         uint64   `json:"patch" yaml:"patch"`
	PreRelease    []string `json:"pre_release" yaml:"pre_release"`
	BuildMetadata *string  `json:"build_metadata" yaml:"build_metadata"`
	Height        int      `json:"height" yaml:"height"`
	IsFromTag     bool     `json:"is_from_tag" yaml:"is_from_tag"`
}

// Report builds the structured rendering of r.
func (r CalculationResult) Report() Report {
	report := Report{
		Version:    r.Version.String(),
		Major:      r.Version.Major,
		Minor:      r.Version.Minor,
		Patch:      r.Version.Patch,
		PreRelease: make([]string, 0, len(r.Version.Prerelease)),
		Height:     r.Height,
		IsFromTag:  r.IsFromTag,
	}
	report.PreRelease = append(report.PreRelease, r.Version.Prerelease...)
	if r.Version.BuildMetadata != "" {
		metadata := r.Version.BuildMetadata
		report.BuildMetadata = &metadata
	}
	return report
}
