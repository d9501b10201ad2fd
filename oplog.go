package confluxfs

import (
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

// keep only the most recent operations
const OperationLogCap = 50

const OperationKindSyncConflict = "Sync Conflict"

// an immutable record of one observed synchronization event
type Operation struct {
	Id         Id              `json:"id"`
	Kind       string          `json:"kind"`
	Data       json.RawMessage `json:"data,omitempty"`
	ObservedAt time.Time       `json:"observedAt"`
}

type OperationListener func(operation *Operation)

// OperationLog is a bounded, newest-first record of routed events,
// kept for display and debugging. Pure in-memory, no persistence.
type OperationLog struct {
	stateLock sync.Mutex

	operations []*Operation

	nextListenerId int
	listeners      map[int]OperationListener
}

func NewOperationLog() *OperationLog {
	return &OperationLog{
		operations: []*Operation{},
		listeners:  map[int]OperationListener{},
	}
}

func (self *OperationLog) Record(kind string, data json.RawMessage) *Operation {
	self.stateLock.Lock()

	operation := &Operation{
		Id:         NewId(),
		Kind:       kind,
		Data:       data,
		ObservedAt: time.Now(),
	}
	self.operations = append([]*Operation{operation}, self.operations...)
	if OperationLogCap < len(self.operations) {
		self.operations = self.operations[:OperationLogCap]
	}
	listeners := maps.Values(self.listeners)
	self.stateLock.Unlock()

	for _, listener := range listeners {
		listener(operation)
	}
	return operation
}

// AddListener registers a callback for newly recorded operations and
// returns a remove function. Listeners are called outside the lock.
func (self *OperationLog) AddListener(listener OperationListener) func() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	listenerId := self.nextListenerId
	self.nextListenerId += 1
	self.listeners[listenerId] = listener
	return func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		delete(self.listeners, listenerId)
	}
}

func (self *OperationLog) Clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.operations = []*Operation{}
}

func (self *OperationLog) Len() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.operations)
}

// Operations returns a newest-first snapshot.
func (self *OperationLog) Operations() []*Operation {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	out := make([]*Operation, len(self.operations))
	copy(out, self.operations)
	return out
}
