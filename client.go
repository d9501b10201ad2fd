// Package confluxfs is the client core of ConfluxFS. It keeps an
// in-memory view of a server-authoritative file tree consistent by
// listening on a persistent push channel and re-fetching the canonical
// tree whenever the server reports a structural change. The server is
// the single source of truth; the client never merges concurrent edits
// itself.
package confluxfs

import (
	"context"
)

// Client wires one session: the api, the three stores, the event
// router, and the sync manager. Each store has a single writer; the
// stores are constructed per session and passed by reference, never
// shared across sessions.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	api *ConfluxApi

	treeStore    *TreeStore
	operationLog *OperationLog
	status       *StatusStore
	notify       Notifier

	router *EventRouter
	sync   *SyncManager
}

func NewClientWithDefaults(ctx context.Context, apiUrl string, notify Notifier) *Client {
	return NewClient(ctx, apiUrl, notify, DefaultSyncSettings())
}

func NewClient(ctx context.Context, apiUrl string, notify Notifier, settings *SyncSettings) *Client {
	cancelCtx, cancel := context.WithCancel(ctx)

	if notify == nil {
		notify = NewLogNotifier()
	}

	api := NewConfluxApiWithContext(cancelCtx, apiUrl)
	treeStore := NewTreeStore()
	operationLog := NewOperationLog()
	status := NewStatusStore()
	router := NewEventRouter(treeStore, operationLog, status, notify, api.FileTree)
	syncManager := NewSyncManager(cancelCtx, status, router, notify, SyncUrl(apiUrl), settings)

	return &Client{
		ctx:          cancelCtx,
		cancel:       cancel,
		api:          api,
		treeStore:    treeStore,
		operationLog: operationLog,
		status:       status,
		notify:       notify,
		router:       router,
		sync:         syncManager,
	}
}

func (self *Client) Api() *ConfluxApi {
	return self.api
}

func (self *Client) TreeStore() *TreeStore {
	return self.treeStore
}

func (self *Client) OperationLog() *OperationLog {
	return self.operationLog
}

func (self *Client) Status() *StatusStore {
	return self.status
}

func (self *Client) Router() *EventRouter {
	return self.router
}

// SetByJwt attaches the session token to api calls.
func (self *Client) SetByJwt(byJwt string) {
	self.api.SetByJwt(byJwt)
}

func (self *Client) Connect() {
	self.sync.Connect()
}

func (self *Client) Disconnect() {
	self.sync.Disconnect()
}

func (self *Client) Close() {
	self.sync.Close()
	self.api.Close()
	self.cancel()
}
