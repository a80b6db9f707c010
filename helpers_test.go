package tagver

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// testRepo builds commit graphs in an in-memory repository. Every commit
// moves HEAD, so side branches are built by passing parents explicitly.
type testRepo struct {
	t        *testing.T
	repo     *git.Repository
	worktree *git.Worktree
	commits  int
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate(t *testing.T) *testRepo {
	t.Helper()

	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	return &testRepo{t: t, repo: repo, worktree: worktree}
}

// commit adds a commit on top of HEAD, or on top of parents when given.
func (r *testRepo) commit(parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()

	r.commits++
	filename := fmt.Sprintf("file_%d.txt", r.commits)
	require.NoError(r.t, writeFile(r.worktree.Filesystem, filename, fmt.Sprintf("Content %d", r.commits)))

	_, err := r.worktree.Add(filename)
	require.NoError(r.t, err)

	hash, err := r.worktree.Commit(fmt.Sprintf("Commit %d", r.commits), &git.CommitOptions{
		Author:  testSignature,
		Parents: parents,
	})
	require.NoError(r.t, err)

	return hash
}

// commitN adds n commits on top of HEAD and returns the last one.
func (r *testRepo) commitN(n int) plumbing.Hash {
	r.t.Helper()

	var hash plumbing.Hash
	for i := 0; i < n; i++ {
		hash = r.commit()
	}
	return hash
}

// tag creates a lightweight tag.
func (r *testRepo) tag(name string, hash plumbing.Hash) {
	r.t.Helper()

	_, err := r.repo.CreateTag(name, hash, nil)
	require.NoError(r.t, err)
}

// annotatedTag creates an annotated tag object pointing at hash.
func (r *testRepo) annotatedTag(name string, hash plumbing.Hash) {
	r.t.Helper()

	_, err := r.repo.CreateTag(name, hash, &git.CreateTagOptions{
		Tagger:  testSignature,
		Message: "Release " + name,
	})
	require.NoError(r.t, err)
}

func (r *testRepo) gitRepository() *GitRepository {
	r.t.Helper()

	repo, err := NewGitRepository(r.repo)
	require.NoError(r.t, err)
	return repo
}

// calculate runs the full calculation against the in-memory repository.
func (r *testRepo) calculate(cfg Config) *CalculationResult {
	r.t.Helper()

	result, err := CalculateRepository(r.gitRepository(), cfg)
	require.NoError(r.t, err)
	return result
}

// testRepoFSCreate initialises a repository on disk with a single commit
// and returns its directory.
func testRepoFSCreate(t *testing.T, tags ...string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, writeFile(worktree.Filesystem, "test.txt", "Hello world"))
	_, err = worktree.Add("test.txt")
	require.NoError(t, err)

	hash, err := worktree.Commit("Initial commit", &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)

	for _, tag := range tags {
		_, err = repo.CreateTag(tag, hash, nil)
		require.NoError(t, err)
	}

	return dir
}

// fakeRepository is a Repository backed by a parent table.
type fakeRepository struct {
	head    plumbing.Hash
	parents map[plumbing.Hash][]plumbing.Hash
	tags    []TagReference
	shallow bool
	err     error
}

func (f *fakeRepository) IsShallow() (bool, error) { return f.shallow, nil }

func (f *fakeRepository) HeadCommit() (plumbing.Hash, bool, error) {
	return f.head, !f.head.IsZero(), nil
}

func (f *fakeRepository) TagReferences(prefix string) ([]TagReference, error) {
	var refs []TagReference
	for _, ref := range f.tags {
		if strings.HasPrefix(ref.Name, prefix) {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (f *fakeRepository) ParentIDs(hash plumbing.Hash) ([]plumbing.Hash, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.parents[hash], nil
}

// fakeHash derives a stable hash from a short commit label.
func fakeHash(label string) plumbing.Hash {
	return plumbing.ComputeHash(plumbing.CommitObject, []byte(label))
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}
