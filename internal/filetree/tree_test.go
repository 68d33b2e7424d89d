package filetree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeReadText(t *testing.T) {
	tree := FromMap(map[string]string{
		"main.tf":          `variable "region" {}`,
		"modules/vpc/x.tf": "resource {}",
	})

	content, err := tree.ReadText("main.tf")
	require.NoError(t, err)
	assert.Equal(t, `variable "region" {}`, content)

	// Paths are normalized.
	content, err = tree.ReadText("./main.tf")
	require.NoError(t, err)
	assert.Equal(t, `variable "region" {}`, content)

	_, err = tree.ReadText("missing.tf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tree.ReadText("modules/vpc")
	assert.ErrorIs(t, err, ErrNotFile)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestTreeExistsAndIsDir(t *testing.T) {
	tree := FromMap(map[string]string{
		"a/b/c.txt": "x",
		"top.txt":   "y",
	})

	assert.True(t, tree.Exists("top.txt"))
	assert.True(t, tree.Exists("a"))
	assert.True(t, tree.Exists("a/b"))
	assert.False(t, tree.Exists("a/b/c"))

	assert.True(t, tree.IsDir("a"))
	assert.True(t, tree.IsDir("a/b"))
	assert.False(t, tree.IsDir("top.txt"))
	assert.False(t, tree.IsDir("a/b/c.txt"))
}

func TestTreeCopyOnWrite(t *testing.T) {
	orig := FromMap(map[string]string{"f.txt": "one"})

	modified := orig.WithFile("f.txt", "two")
	added := orig.WithFile("g.txt", "three")

	// The original snapshot never changes.
	content, err := orig.ReadText("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", content)
	assert.False(t, orig.Exists("g.txt"))

	content, err = modified.ReadText("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", content)

	assert.Equal(t, 2, added.Len())
}

func TestTreeWithout(t *testing.T) {
	tree := FromMap(map[string]string{
		"a/b/one.tf": "1",
		"a/b/two.tf": "2",
		"a/root.tf":  "3",
	})

	// Removing a directory removes the whole subtree.
	next, err := tree.Without("a/b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/root.tf"}, next.Paths())
	assert.Equal(t, 3, tree.Len())

	next, err = tree.Without("a/root.tf")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/one.tf", "a/b/two.tf"}, next.Paths())

	_, err = tree.Without("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUpdate(t *testing.T) {
	store := NewStore(FromMap(map[string]string{"f.txt": "v1"}))

	err := store.Update(func(tree Tree) (Tree, error) {
		return tree.WithFile("f.txt", "v2"), nil
	})
	require.NoError(t, err)

	content, err := store.Snapshot().ReadText("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", content)

	// A failed update leaves the snapshot untouched.
	boom := errors.New("boom")
	err = store.Update(func(tree Tree) (Tree, error) {
		return tree.WithFile("f.txt", "v3"), boom
	})
	assert.ErrorIs(t, err, boom)

	content, err = store.Snapshot().ReadText("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", content)
}
