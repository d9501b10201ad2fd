package confluxfs

import (
	"flag"
	"testing"

	"github.com/go-playground/assert/v2"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

func newFolder(name string, parentId *Id, children ...*Node) *Node {
	return &Node{
		Id:       NewId(),
		Name:     name,
		Type:     "folder",
		ParentId: parentId,
		Children: children,
	}
}

func newFile(name string, parentId *Id) *Node {
	return &Node{
		Id:       NewId(),
		Name:     name,
		Type:     "file",
		ParentId: parentId,
	}
}

func TestInsertRoot(t *testing.T) {
	treeStore := NewTreeStore()

	node := newFile("a.txt", nil)
	// caller-supplied children must be discarded
	node.Children = []*Node{newFile("bogus", nil)}
	treeStore.Insert(node)

	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Id, node.Id)
	assert.Equal(t, len(roots[0].Children), 0)
}

func TestInsertUnderParent(t *testing.T) {
	treeStore := NewTreeStore()

	parent := newFolder("docs", nil)
	treeStore.ReplaceAll([]*Node{parent})

	first := newFile("a.txt", &parent.Id)
	second := newFile("b.txt", &parent.Id)
	treeStore.Insert(first)
	treeStore.Insert(second)

	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, len(roots[0].Children), 2)
	// appended after pre-existing children, order preserved
	assert.Equal(t, roots[0].Children[0].Id, first.Id)
	assert.Equal(t, roots[0].Children[1].Id, second.Id)
}

func TestInsertUnderNestedParent(t *testing.T) {
	treeStore := NewTreeStore()

	inner := newFolder("inner", nil)
	outer := newFolder("outer", nil, inner)
	treeStore.ReplaceAll([]*Node{outer})

	node := newFile("deep.txt", &inner.Id)
	treeStore.Insert(node)

	match := treeStore.Get(node.Id)
	assert.NotEqual(t, match, nil)
	assert.Equal(t, *match.ParentId, inner.Id)
}

func TestInsertMissingParent(t *testing.T) {
	treeStore := NewTreeStore()

	root := newFolder("docs", nil)
	treeStore.ReplaceAll([]*Node{root})

	missingId := NewId()
	treeStore.Insert(newFile("orphan.txt", &missingId))

	// the insert is dropped, the tree is unchanged
	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Id, root.Id)
	assert.Equal(t, len(roots[0].Children), 0)
}

func TestRemoveSubtree(t *testing.T) {
	treeStore := NewTreeStore()

	leaf := newFile("leaf.txt", nil)
	folder := newFolder("folder", nil, leaf)
	sibling := newFile("sibling.txt", nil)
	treeStore.ReplaceAll([]*Node{folder, sibling})

	treeStore.Remove(folder.Id)

	// the node and every descendant are gone
	assert.Equal(t, treeStore.Contains(folder.Id), false)
	assert.Equal(t, treeStore.Contains(leaf.Id), false)
	assert.Equal(t, treeStore.Contains(sibling.Id), true)

	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Id, sibling.Id)
}

func TestRemoveMissing(t *testing.T) {
	treeStore := NewTreeStore()

	root := newFolder("docs", nil)
	treeStore.ReplaceAll([]*Node{root})

	treeStore.Remove(NewId())

	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Id, root.Id)
}

func TestPatchName(t *testing.T) {
	treeStore := NewTreeStore()

	child := newFile("old.txt", nil)
	root := newFolder("docs", nil, child)
	treeStore.ReplaceAll([]*Node{root})

	treeStore.PatchName(child.Id, "new.txt")

	roots := treeStore.Nodes()
	assert.Equal(t, roots[0].Name, "docs")
	assert.Equal(t, len(roots[0].Children), 1)
	assert.Equal(t, roots[0].Children[0].Name, "new.txt")
	assert.Equal(t, roots[0].Children[0].ParentId, child.ParentId)
}

func TestPatchNameMissing(t *testing.T) {
	treeStore := NewTreeStore()

	root := newFolder("docs", nil)
	treeStore.ReplaceAll([]*Node{root})

	treeStore.PatchName(NewId(), "x")

	roots := treeStore.Nodes()
	assert.Equal(t, roots[0].Name, "docs")
}

func TestReplaceAll(t *testing.T) {
	treeStore := NewTreeStore()

	treeStore.ReplaceAll([]*Node{newFolder("old", nil)})

	next := newFolder("next", nil)
	// nil child sequences from the wire are normalized
	next.Children = nil
	treeStore.ReplaceAll([]*Node{next})

	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Name, "next")
	assert.NotEqual(t, roots[0].Children, nil)
}

func TestNodesSnapshotIsolation(t *testing.T) {
	treeStore := NewTreeStore()

	root := newFolder("docs", nil)
	treeStore.ReplaceAll([]*Node{root})

	snapshot := treeStore.Nodes()
	snapshot[0].Name = "mutated"

	assert.Equal(t, treeStore.Get(root.Id).Name, "docs")
}
