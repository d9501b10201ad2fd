package confluxfs

import (
	"encoding/json"
	"time"

	"github.com/golang/glog"
)

// event kinds carried on the push channel. Kinds not listed here are
// forward-compatible no-ops.
const (
	EventNodeCreated            = "node.created"
	EventNodeUpdated            = "node.updated"
	EventNodeDeleted            = "node.deleted"
	EventNodeMoved              = "node.moved"
	EventNodeLocallyModified    = "node.locally_modified"
	EventNodeExternallyModified = "node.externally_modified"
	EventSyncStarted            = "sync.started"
	EventSyncCompleted          = "sync.completed"
	EventSyncConflict           = "sync.conflict"
)

// CanonicalFetch reads the authoritative full tree. Wired to
// `ConfluxApi.FileTree` in production.
type CanonicalFetch func(callback FileTreeCallback)

// EventRouter maps each decoded event to a reconciliation action.
// Structural events always resolve by refetching the canonical tree
// rather than patching from the event payload. Diffs for moves change
// a node's ancestor chain and are error-prone to patch incrementally;
// a full reload trades one round trip for correctness.
type EventRouter struct {
	treeStore    *TreeStore
	operationLog *OperationLog
	status       *StatusStore
	notify       Notifier
	fetch        CanonicalFetch
}

func NewEventRouter(
	treeStore *TreeStore,
	operationLog *OperationLog,
	status *StatusStore,
	notify Notifier,
	fetch CanonicalFetch,
) *EventRouter {
	return &EventRouter{
		treeStore:    treeStore,
		operationLog: operationLog,
		status:       status,
		notify:       notify,
		fetch:        fetch,
	}
}

// Route is the single entry point for every decoded event. Events are
// recorded before any branching so the log reflects everything
// observed, including kinds later ignored.
func (self *EventRouter) Route(kind string, data json.RawMessage) {
	self.operationLog.Record(kind, data)

	switch kind {
	case EventNodeCreated,
		EventNodeUpdated,
		EventNodeDeleted,
		EventNodeMoved,
		EventNodeLocallyModified,
		EventNodeExternallyModified:
		glog.V(1).Infof("[route]%s, reloading tree\n", kind)
		self.reload()
	case EventSyncStarted:
		self.status.setState(StateSyncing)
	case EventSyncCompleted:
		self.status.setState(StateConnected)
		self.status.setLastSyncTime(time.Now())
		// a sync cycle may have merged changes invisible to any
		// single event
		self.reload()
	case EventSyncConflict:
		self.notify.Notify(NotifyError, "Sync conflict. Reloading state.")
		self.operationLog.Record(OperationKindSyncConflict, data)
		self.reload()
	default:
		glog.Warningf("[route]unknown event type: %s\n", kind)
	}
}

// reload refetches the canonical tree and replaces the store's
// contents. On failure the tree keeps its last known good state.
// Overlapping reloads are not coalesced; each completion is a
// self-consistent last-write-wins replacement.
func (self *EventRouter) reload() {
	self.fetch(NewApiCallback[*FileTreeResult](func(result *FileTreeResult, err error) {
		if err != nil {
			glog.Infof("[route]tree reload error = %s\n", err)
			self.notify.Notify(NotifyError, err.Error())
			return
		}
		self.treeStore.ReplaceAll(result.Nodes)
	}))
}
