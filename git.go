package tagver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository is the read-only view of a Git repository the calculation
// needs.
type Repository interface {
	// IsShallow reports whether history has been truncated by a shallow clone.
	IsShallow() (bool, error)

	// HeadCommit returns the commit HEAD points to. ok is false when the
	// repository has no commits.
	HeadCommit() (hash plumbing.Hash, ok bool, err error)

	// TagReferences lists the tags whose names start with prefix, with
	// annotated tags peeled to the commit they ultimately target. Tags that do
	// not resolve to a commit are omitted.
	TagReferences(prefix string) ([]TagReference, error)

	// ParentIDs returns the parents of a commit, first parent first.
	ParentIDs(hash plumbing.Hash) ([]plumbing.Hash, error)
}

// TagReference is a tag name and the commit it resolves to.
type TagReference struct {
	Name   string
	Target plumbing.Hash
}

// GitRepository implements Repository on top of go-git.
type GitRepository struct {
	repo    *git.Repository
	shallow map[plumbing.Hash]struct{}
}

// OpenRepository opens the Git repository containing path, searching parent
// directories for the .git directory.
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// Discover opens the repository containing path. It returns an error
// wrapping ErrRepositoryNotFound when there is none.
func Discover(path string) (*GitRepository, error) {
	repo, err := OpenRepository(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w at path %s: %w", ErrRepositoryNotFound, path, err)
		}
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	return NewGitRepository(repo)
}

// NewGitRepository wraps an already opened go-git repository.
func NewGitRepository(repo *git.Repository) (*GitRepository, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}

	shallow, err := repo.Storer.Shallow()
	if err != nil {
		return nil, fmt.Errorf("reading shallow commits: %w", err)
	}

	r := &GitRepository{repo: repo, shallow: make(map[plumbing.Hash]struct{}, len(shallow))}
	for _, h := range shallow {
		r.shallow[h] = struct{}{}
	}
	return r, nil
}

// IsGitDirectory reports whether path is inside a Git repository.
func IsGitDirectory(path string) bool {
	_, err := OpenRepository(path)
	return err == nil
}

func (r *GitRepository) IsShallow() (bool, error) {
	return len(r.shallow) > 0, nil
}

func (r *GitRepository) HeadCommit() (plumbing.Hash, bool, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash(), true, nil
}

func (r *GitRepository) TagReferences(prefix string) ([]TagReference, error) {
	tags, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer tags.Close()

	var refs []TagReference
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		name := strings.TrimPrefix(ref.Name().String(), "refs/tags/")
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		target, ok, err := r.peelToCommit(ref.Hash())
		if err != nil {
			return fmt.Errorf("resolving tag %s: %w", name, err)
		}
		if !ok {
			log().Debug("Ignoring tag that does not point to a commit", "tag", name)
			return nil
		}

		refs = append(refs, TagReference{Name: name, Target: target})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return refs, nil
}

// peelToCommit follows annotated tags, including tags of tags, until it
// reaches a non-tag object. ok is false when that object is not a commit.
func (r *GitRepository) peelToCommit(hash plumbing.Hash) (plumbing.Hash, bool, error) {
	for {
		tag, err := r.repo.TagObject(hash)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			break
		}
		if err != nil {
			return plumbing.ZeroHash, false, err
		}
		if tag.TargetType != plumbing.TagObject && tag.TargetType != plumbing.CommitObject {
			return plumbing.ZeroHash, false, nil
		}
		hash = tag.Target
	}

	if _, err := r.repo.CommitObject(hash); err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, err
	}
	return hash, true, nil
}

// ParentIDs returns the recorded parents of a commit. Commits on the
// boundary of a shallow clone report no parents since those are not
// available locally.
func (r *GitRepository) ParentIDs(hash plumbing.Hash) ([]plumbing.Hash, error) {
	if _, ok := r.shallow[hash]; ok {
		return nil, nil
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("getting commit object %s: %w", hash, err)
	}
	return commit.ParentHashes, nil
}

// WalkToTag follows the first-parent lineage from start until it reaches a
// commit in the catalogue or a commit without parents. It returns the
// highest ranked tag of that commit, if any, and the number of commits
// walked.
//
// Only first parents are followed, so commits reachable solely through the
// second or later parent of a merge are never considered.
func WalkToTag(repo Repository, start plumbing.Hash, catalogue TagCatalogue) (*VersionTag, int, error) {
	height := 0
	current := start

	for {
		if tag, ok := catalogue.Best(current); ok {
			return &tag, height, nil
		}

		parents, err := repo.ParentIDs(current)
		if err != nil {
			return nil, height, err
		}
		if len(parents) == 0 {
			return nil, height, nil
		}

		current = parents[0]
		height++
	}
}
