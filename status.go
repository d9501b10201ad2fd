package confluxfs

import (
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateSyncing
)

func (self ConnectionState) String() string {
	switch self {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateSyncing:
		return "Syncing"
	default:
		return "Unknown"
	}
}

type StatusListener func(state ConnectionState)

// StatusStore holds the connection state of one session. The sync
// manager and the event router both write it; listeners observe
// transitions without polling.
type StatusStore struct {
	stateLock sync.Mutex

	state        ConnectionState
	lastSyncTime time.Time

	nextListenerId int
	listeners      map[int]StatusListener
}

func NewStatusStore() *StatusStore {
	return &StatusStore{
		state:     StateDisconnected,
		listeners: map[int]StatusListener{},
	}
}

func (self *StatusStore) State() ConnectionState {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.state
}

func (self *StatusStore) LastSyncTime() time.Time {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return self.lastSyncTime
}

// AddListener registers a callback for state transitions and returns
// a remove function. Listeners are called outside the store lock.
func (self *StatusStore) AddListener(listener StatusListener) func() {
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

func (self *StatusStore) setState(state ConnectionState) {
	self.stateLock.Lock()
	if self.state == state {
		self.stateLock.Unlock()
		return
	}
	self.state = state
	listeners := maps.Values(self.listeners)
	self.stateLock.Unlock()

	for _, listener := range listeners {
		listener(state)
	}
}

func (self *StatusStore) setLastSyncTime(syncTime time.Time) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.lastSyncTime = syncTime
}
