package tagver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blang/semver"
)

// Version is an immutable semantic version. Derivation methods return new
// values and never modify the receiver.
//
// Build metadata takes no part in equality or ordering.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64

	// Prerelease holds the dot-separated pre-release identifiers in order.
	// An empty slice marks an RTM version.
	Prerelease []string

	// BuildMetadata is the text after "+", empty when absent.
	BuildMetadata string
}

// VersionKind distinguishes the two shapes a version can take.
type VersionKind int

const (
	// KindRTM is a final release with no pre-release identifiers.
	KindRTM VersionKind = iota
	// KindPrerelease carries at least one pre-release identifier.
	KindPrerelease
)

func (k VersionKind) String() string {
	if k == KindPrerelease {
		return "pre-release"
	}
	return "rtm"
}

// NewVersion creates an RTM version with no build metadata.
func NewVersion(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses a strict SemVer 2.0 string such as "1.2.3-beta.1+ci.7".
// A leading "v" is not accepted; strip tag prefixes before calling.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.Parse(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: %v", ErrInvalidVersion, s, err)
	}

	v := Version{
		Major:         sv.Major,
		Minor:         sv.Minor,
		Patch:         sv.Patch,
		BuildMetadata: strings.Join(sv.Build, "."),
	}
	for _, pre := range sv.Pre {
		v.Prerelease = append(v.Prerelease, pre.String())
	}

	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// DefaultVersion is the 0.0.0 version used when no commits or no matching
// tags exist.
func DefaultVersion(defaultPrerelease []string) Version {
	return Version{Prerelease: cloneIdentifiers(defaultPrerelease)}
}

// Kind reports whether v is an RTM or a pre-release version.
func (v Version) Kind() VersionKind {
	if len(v.Prerelease) == 0 {
		return KindRTM
	}
	return KindPrerelease
}

// IsPrerelease reports whether v has pre-release identifiers.
func (v Version) IsPrerelease() bool { return v.Kind() == KindPrerelease }

// IsRTM reports whether v is a release version without pre-release identifiers.
func (v Version) IsRTM() bool { return v.Kind() == KindRTM }

// Increment bumps the given part and resets the lower parts. The result is
// always an RTM version without build metadata.
func (v Version) Increment(part VersionPart) Version {
	switch part {
	case Major:
		return NewVersion(v.Major+1, 0, 0)
	case Minor:
		return NewVersion(v.Major, v.Minor+1, 0)
	default:
		return NewVersion(v.Major, v.Minor, v.Patch+1)
	}
}

// WithRTMHeight derives the version for a commit height commits past an RTM
// tag, e.g. 1.2.3 with Patch, "alpha.0" and height 5 gives 1.2.4-alpha.0.5.
func (v Version) WithRTMHeight(height int, part VersionPart, defaultPrerelease []string) Version {
	if height == 0 {
		return v.clone()
	}

	next := v.Increment(part)
	next.Prerelease = append(cloneIdentifiers(defaultPrerelease), strconv.Itoa(height))
	return next
}

// WithPrereleaseHeight appends height to the existing pre-release
// identifiers, e.g. 1.0.0-beta.1 with height 3 gives 1.0.0-beta.1.3.
// The tag's build metadata is not carried over.
func (v Version) WithPrereleaseHeight(height int) Version {
	if height == 0 {
		return v.clone()
	}

	return Version{
		Major:      v.Major,
		Minor:      v.Minor,
		Patch:      v.Patch,
		Prerelease: append(cloneIdentifiers(v.Prerelease), strconv.Itoa(height)),
	}
}

// ApplyMinimum replaces v with floor.major.floor.minor.0-<defaultPrerelease>
// when v is below the floor. Versions at or above it are returned unchanged.
func (v Version) ApplyMinimum(floor MajorMinor, defaultPrerelease []string) Version {
	if v.Major > floor.Major || (v.Major == floor.Major && v.Minor >= floor.Minor) {
		return v.clone()
	}

	return Version{
		Major:      floor.Major,
		Minor:      floor.Minor,
		Prerelease: cloneIdentifiers(defaultPrerelease),
	}
}

// WithMergedBuildMetadata sets build metadata from the tag and the
// configuration. When both are present they are joined as "tag.config".
func (v Version) WithMergedBuildMetadata(tagMetadata, configMetadata string) Version {
	merged := v.clone()
	switch {
	case tagMetadata != "" && configMetadata != "":
		merged.BuildMetadata = tagMetadata + "." + configMetadata
	case tagMetadata != "":
		merged.BuildMetadata = tagMetadata
	default:
		merged.BuildMetadata = configMetadata
	}
	return merged
}

// WithBuildMetadata replaces the build metadata.
func (v Version) WithBuildMetadata(metadata string) Version {
	out := v.clone()
	out.BuildMetadata = metadata
	return out
}

// Compare returns -1, 0 or 1 following SemVer precedence. Build metadata is
// ignored.
func (v Version) Compare(o Version) int {
	if c := compareUint(v.Major, o.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, o.Patch); c != 0 {
		return c
	}

	// A pre-release sorts before the RTM version it precedes.
	switch {
	case len(v.Prerelease) == 0 && len(o.Prerelease) == 0:
		return 0
	case len(v.Prerelease) == 0:
		return 1
	case len(o.Prerelease) == 0:
		return -1
	}

	for i := 0; i < len(v.Prerelease) && i < len(o.Prerelease); i++ {
		if c := prereleaseIdentifier(v.Prerelease[i]).Compare(prereleaseIdentifier(o.Prerelease[i])); c != 0 {
			return c
		}
	}

	return compareUint(uint64(len(v.Prerelease)), uint64(len(o.Prerelease)))
}

// Equal reports whether v and o have the same precedence. Build metadata is ignored.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// LessThan reports whether v has lower precedence than o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// GreaterThan reports whether v has higher precedence than o.
func (v Version) GreaterThan(o Version) bool { return v.Compare(o) > 0 }

// String renders major.minor.patch[-pre][+metadata].
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if len(v.Prerelease) > 0 {
		b.WriteString("-")
		b.WriteString(strings.Join(v.Prerelease, "."))
	}
	if v.BuildMetadata != "" {
		b.WriteString("+")
		b.WriteString(v.BuildMetadata)
	}
	return b.String()
}

func (v Version) clone() Version {
	v.Prerelease = cloneIdentifiers(v.Prerelease)
	return v
}

// validPrereleaseIdentifier checks s against the SemVer identifier grammar:
// [0-9A-Za-z-] only, numeric identifiers without leading zeros.
func validPrereleaseIdentifier(s string) error {
	if _, err := semver.NewPRVersion(s); err != nil {
		return fmt.Errorf("invalid pre-release identifier %q: %v", s, err)
	}
	return nil
}

// prereleaseIdentifier converts s for precedence comparison. Identifiers that
// blang/semver rejects compare as alphanumeric.
func prereleaseIdentifier(s string) semver.PRVersion {
	pr, err := semver.NewPRVersion(s)
	if err != nil {
		return semver.PRVersion{VersionStr: s}
	}
	return pr
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneIdentifiers(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
