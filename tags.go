package tagver

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// VersionTag is a tag whose name parsed as a semantic version.
type VersionTag struct {
	Version Version
	TagName string
}

// TagCatalogue maps a commit to the version tags pointing at it, highest
// version first.
type TagCatalogue map[plumbing.Hash][]VersionTag

// Best returns the highest ranked tag on a commit.
func (c TagCatalogue) Best(hash plumbing.Hash) (VersionTag, bool) {
	tags := c[hash]
	if len(tags) == 0 {
		return VersionTag{}, false
	}
	return tags[0], true
}

// BuildTagCatalogue filters refs by prefix and parses what remains as
// semantic versions. Tags without the prefix are skipped silently; tags with
// it that fail to parse are returned in invalid.
//
// Tags on the same commit are ordered by version descending. Equal versions,
// such as tags that differ only in build metadata, are ordered by tag name.
func BuildTagCatalogue(refs []TagReference, prefix string) (catalogue TagCatalogue, invalid []string) {
	catalogue = make(TagCatalogue)

	for _, ref := range refs {
		candidate, ok := strings.CutPrefix(ref.Name, prefix)
		if !ok {
			continue
		}

		version, err := ParseVersion(candidate)
		if err != nil {
			invalid = append(invalid, ref.Name)
			continue
		}

		catalogue[ref.Target] = append(catalogue[ref.Target], VersionTag{Version: version, TagName: ref.Name})
	}

	for _, tags := range catalogue {
		sort.SliceStable(tags, func(i, j int) bool {
			if c := tags[i].Version.Compare(tags[j].Version); c != 0 {
				return c > 0
			}
			return tags[i].TagName < tags[j].TagName
		})
	}

	return catalogue, invalid
}
