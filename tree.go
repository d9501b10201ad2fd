package confluxfs

import (
	"sync"
	"time"
)

// a file or folder entry in the client's tree model
// `dto.FileNodeDto`
type Node struct {
	Id       Id      `json:"id"`
	ParentId *Id     `json:"parentId,omitempty"`
	Name     string  `json:"name"`
	Type     string  `json:"type,omitempty"`
	FileSize int64   `json:"fileSize,omitempty"`
	MimeType string  `json:"mimeType,omitempty"`
	Children []*Node `json:"children"`
}

func (self *Node) IsFolder() bool {
	return self.Type == "folder"
}

func (self *Node) copy() *Node {
	out := &Node{
		Id:       self.Id,
		Name:     self.Name,
		Type:     self.Type,
		FileSize: self.FileSize,
		MimeType: self.MimeType,
		Children: make([]*Node, 0, len(self.Children)),
	}
	if self.ParentId != nil {
		parentId := *self.ParentId
		out.ParentId = &parentId
	}
	for _, child := range self.Children {
		out.Children = append(out.Children, child.copy())
	}
	return out
}

// TreeStore owns the client's in-memory forest of file nodes.
// The server is the source of truth; the store never talks to the
// network. `ReplaceAll` with a canonical snapshot is the sole recovery
// path from any inconsistency. `Insert` and `PatchName` exist for
// point patches under a known parent; structural moves are never
// patched locally, they resolve via `ReplaceAll`.
type TreeStore struct {
	stateLock sync.Mutex

	roots []*Node

	loadTime time.Time
}

func NewTreeStore() *TreeStore {
	return &TreeStore{
		roots: []*Node{},
	}
}

// discards the current forest and installs `nodes` as the new roots.
// the nodes come from the canonical source and are trusted as-is,
// beyond normalizing nil child sequences.
func (self *TreeStore) ReplaceAll(nodes []*Node) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if nodes == nil {
		nodes = []*Node{}
	}
	for _, node := range nodes {
		normalizeChildren(node)
	}
	self.roots = nodes
	self.loadTime = time.Now()
}

func normalizeChildren(node *Node) {
	if node.Children == nil {
		node.Children = []*Node{}
	}
	for _, child := range node.Children {
		normalizeChildren(child)
	}
}

// appends `node` under the parent identified by `node.ParentId`, or to
// the root sequence when the parent id is absent. Whatever children
// the caller supplied are discarded. An insert against a parent that
// is not in the forest is silently dropped. The local tree is assumed
// stale and a later reload corrects it.
func (self *TreeStore) Insert(node *Node) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	insert := node.copy()
	insert.Children = []*Node{}

	if node.ParentId == nil {
		self.roots = append(self.roots, insert)
		return
	}
	if parent := findNode(self.roots, *node.ParentId); parent != nil {
		parent.Children = append(parent.Children, insert)
	}
}

// splices the node with `id`, and with it the entire subtree, out of
// its parent's sequence. No-op if not found.
func (self *TreeStore) Remove(id Id) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.roots = removeNode(self.roots, id)
}

// overwrites only the name of the node with `id`. No-op if not found.
func (self *TreeStore) PatchName(id Id, name string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if node := findNode(self.roots, id); node != nil {
		node.Name = name
	}
}

// Nodes returns a deep copy of the forest. Callers never alias the
// owned nodes.
func (self *TreeStore) Nodes() []*Node {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	out := make([]*Node, 0, len(self.roots))
	for _, root := range self.roots {
		out = append(out, root.copy())
	}
	return out
}

func (self *TreeStore) Get(id Id) *Node {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if node := findNode(self.roots, id); node != nil {
		return node.copy()
	}
	return nil
}

func (self *TreeStore) Contains(id Id) bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return findNode(self.roots, id) != nil
}

func (self *TreeStore) LoadTime() time.Time {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.loadTime
}

// depth-first pre-order, first match wins. Ids are unique across the
// forest, so at most one match can exist.
func findNode(nodes []*Node, id Id) *Node {
	for _, node := range nodes {
		if node.Id == id {
			return node
		}
		if match := findNode(node.Children, id); match != nil {
			return match
		}
	}
	return nil
}

func removeNode(nodes []*Node, id Id) []*Node {
	for i, node := range nodes {
		if node.Id == id {
			return append(nodes[:i], nodes[i+1:]...)
		}
		node.Children = removeNode(node.Children, id)
	}
	return nodes
}
