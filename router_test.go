package confluxfs

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"
)

// canonical fetch stub that completes synchronously
type fetchStub struct {
	stateLock sync.Mutex

	count  int
	result *FileTreeResult
	err    error
}

func (self *fetchStub) fetch(callback FileTreeCallback) {
	self.stateLock.Lock()
	self.count += 1
	self.stateLock.Unlock()
	callback.Result(self.result, self.err)
}

func (self *fetchStub) Count() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.count
}

func newTestRouter(fetch *fetchStub) (*EventRouter, *TreeStore, *OperationLog, *StatusStore, *MemoryNotifier) {
	treeStore := NewTreeStore()
	operationLog := NewOperationLog()
	status := NewStatusStore()
	notify := NewMemoryNotifier(16)
	router := NewEventRouter(treeStore, operationLog, status, notify, fetch.fetch)
	return router, treeStore, operationLog, status, notify
}

func TestRouteStructuralEvent(t *testing.T) {
	canonical := newFolder("docs", nil)
	fetch := &fetchStub{
		result: &FileTreeResult{Nodes: []*Node{canonical}},
	}
	router, treeStore, operationLog, _, notify := newTestRouter(fetch)

	router.Route(EventNodeDeleted, json.RawMessage(`{"id":"x"}`))

	assert.Equal(t, fetch.Count(), 1)
	operations := operationLog.Operations()
	assert.Equal(t, len(operations), 1)
	assert.Equal(t, operations[0].Kind, EventNodeDeleted)
	assert.Equal(t, len(notify.Toasts()), 0)

	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Id, canonical.Id)
}

// a node.created event never patches locally. The canonical fetch
// result replaces the tree wholesale.
func TestRouteCreatedReplacesTree(t *testing.T) {
	docs := newFolder("docs", nil)

	canonicalChild := newFile("a.txt", &docs.Id)
	canonicalRoot := newFolder("docs", nil, canonicalChild)
	canonicalRoot.Id = docs.Id
	fetch := &fetchStub{
		result: &FileTreeResult{Nodes: []*Node{canonicalRoot}},
	}
	router, treeStore, _, _, _ := newTestRouter(fetch)
	treeStore.ReplaceAll([]*Node{docs})

	data, _ := json.Marshal(map[string]any{
		"id":       canonicalChild.Id.String(),
		"parentId": docs.Id.String(),
		"name":     "a.txt",
	})
	router.Route(EventNodeCreated, data)

	assert.Equal(t, fetch.Count(), 1)
	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Id, docs.Id)
	assert.Equal(t, len(roots[0].Children), 1)
	assert.Equal(t, roots[0].Children[0].Name, "a.txt")
}

func TestRouteUnknownEvent(t *testing.T) {
	fetch := &fetchStub{result: &FileTreeResult{}}
	router, _, operationLog, _, notify := newTestRouter(fetch)

	router.Route("foo.bar", json.RawMessage(`{}`))

	assert.Equal(t, fetch.Count(), 0)
	assert.Equal(t, len(notify.Toasts()), 0)
	operations := operationLog.Operations()
	assert.Equal(t, len(operations), 1)
	assert.Equal(t, operations[0].Kind, "foo.bar")
}

func TestRouteSyncStartedCompleted(t *testing.T) {
	fetch := &fetchStub{result: &FileTreeResult{}}
	router, _, _, status, _ := newTestRouter(fetch)

	router.Route(EventSyncStarted, nil)
	assert.Equal(t, status.State(), StateSyncing)
	assert.Equal(t, fetch.Count(), 0)

	router.Route(EventSyncCompleted, nil)
	assert.Equal(t, status.State(), StateConnected)
	assert.Equal(t, status.LastSyncTime().IsZero(), false)
	assert.Equal(t, fetch.Count(), 1)
}

func TestRouteSyncConflict(t *testing.T) {
	fetch := &fetchStub{result: &FileTreeResult{}}
	router, _, operationLog, _, notify := newTestRouter(fetch)

	router.Route(EventSyncConflict, json.RawMessage(`{"id":"x"}`))

	assert.Equal(t, fetch.Count(), 1)

	toasts := notify.Toasts()
	assert.Equal(t, len(toasts), 1)
	assert.Equal(t, toasts[0].Level, NotifyError)

	operations := operationLog.Operations()
	assert.Equal(t, len(operations), 2)
	assert.Equal(t, operations[0].Kind, OperationKindSyncConflict)
	assert.Equal(t, operations[1].Kind, EventSyncConflict)
}

func TestRouteFetchError(t *testing.T) {
	fetch := &fetchStub{err: errors.New("tree unavailable")}
	router, treeStore, _, _, notify := newTestRouter(fetch)

	keep := newFolder("keep", nil)
	treeStore.ReplaceAll([]*Node{keep})

	router.Route(EventNodeMoved, nil)

	// last known good state is kept
	roots := treeStore.Nodes()
	assert.Equal(t, len(roots), 1)
	assert.Equal(t, roots[0].Id, keep.Id)

	toasts := notify.Toasts()
	assert.Equal(t, len(toasts), 1)
	assert.Equal(t, toasts[0].Level, NotifyError)
	assert.Equal(t, toasts[0].Message, "tree unavailable")
}

func TestRouteEveryStructuralKindReloads(t *testing.T) {
	kinds := []string{
		EventNodeCreated,
		EventNodeUpdated,
		EventNodeDeleted,
		EventNodeMoved,
		EventNodeLocallyModified,
		EventNodeExternallyModified,
	}
	for _, kind := range kinds {
		fetch := &fetchStub{result: &FileTreeResult{}}
		router, _, _, _, _ := newTestRouter(fetch)
		router.Route(kind, nil)
		assert.Equal(t, fetch.Count(), 1)
	}
}
