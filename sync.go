package confluxfs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// the `{type, data}` wrapper carried in each push-channel frame
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// broker error frames force a disconnect
const EnvelopeTypeError = "error"

type brokerError struct {
	Message string `json:"message"`
}

type SyncSettings struct {
	WsHandshakeTimeout time.Duration
	// fixed retry delay. Reconnection is time-triggered, not backoff.
	ReconnectTimeout time.Duration
	PingTimeout      time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	// test hook. When nil the manager dials a real websocket.
	ChannelDialer ChannelDialer
}

func DefaultSyncSettings() *SyncSettings {
	return &SyncSettings{
		WsHandshakeTimeout: 2 * time.Second,
		ReconnectTimeout:   5 * time.Second,
		PingTimeout:        1 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        15 * time.Second,
	}
}

type closeReason int

const (
	closeChannelLost closeReason = iota
	closeBrokerError
	closeTeardown
)

// SyncManager owns the lifecycle of the push channel: connect,
// subscribe, reconnect after a fixed delay, teardown. Decoded
// envelopes are handed to the event router; the manager itself holds
// no reconciliation policy.
type SyncManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	status *StatusStore
	router *EventRouter
	notify Notifier

	dialer   ChannelDialer
	settings *SyncSettings

	stateLock sync.Mutex
	runCancel context.CancelFunc
}

func NewSyncManagerWithDefaults(
	ctx context.Context,
	status *StatusStore,
	router *EventRouter,
	notify Notifier,
	syncUrl string,
) *SyncManager {
	return NewSyncManager(ctx, status, router, notify, syncUrl, DefaultSyncSettings())
}

func NewSyncManager(
	ctx context.Context,
	status *StatusStore,
	router *EventRouter,
	notify Notifier,
	syncUrl string,
	settings *SyncSettings,
) *SyncManager {
	cancelCtx, cancel := context.WithCancel(ctx)

	dialer := settings.ChannelDialer
	if dialer == nil {
		dialer = NewWebsocketDialer(syncUrl, settings)
	}

	return &SyncManager{
		ctx:      cancelCtx,
		cancel:   cancel,
		status:   status,
		router:   router,
		notify:   notify,
		dialer:   dialer,
		settings: settings,
	}
}

// Connect activates the channel. If a channel is already active it is
// deactivated first, so there is never a second live channel.
func (self *SyncManager) Connect() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.runCancel != nil {
		glog.V(1).Infof("[sync]already active, deactivating before reconnect\n")
		self.runCancel()
	}
	runCtx, runCancel := context.WithCancel(self.ctx)
	self.runCancel = runCancel
	go self.run(runCtx)
}

// Disconnect deactivates the channel if present and forces the state
// to disconnected. Safe to call when already disconnected.
func (self *SyncManager) Disconnect() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.runCancel != nil {
		self.runCancel()
		self.runCancel = nil
	}
	self.status.setState(StateDisconnected)
}

func (self *SyncManager) Close() {
	self.Disconnect()
	self.cancel()
}

func (self *SyncManager) run(runCtx context.Context) {
	for {
		select {
		case <-runCtx.Done():
			return
		default:
		}

		self.status.setState(StateConnecting)

		channel, err := self.dialer(runCtx)
		if err != nil {
			select {
			case <-runCtx.Done():
				return
			default:
			}
			glog.Infof("[sync]connect error = %s\n", err)
			self.status.setState(StateDisconnected)
			select {
			case <-runCtx.Done():
				return
			case <-time.After(self.settings.ReconnectTimeout):
				continue
			}
		}

		select {
		case <-runCtx.Done():
			channel.Close()
			return
		default:
		}

		self.status.setState(StateConnected)
		self.notify.Notify(NotifySuccess, "Connected to server.")
		glog.V(1).Infof("[sync]connected\n")

		reason := self.handle(runCtx, channel)
		channel.Close()

		select {
		case <-runCtx.Done():
			return
		default:
		}

		switch reason {
		case closeChannelLost:
			self.status.setState(StateDisconnected)
			self.notify.Notify(NotifyError, "Lost connection to server.")
		case closeBrokerError:
			// state and notification already handled
		case closeTeardown:
			return
		}

		select {
		case <-runCtx.Done():
			return
		case <-time.After(self.settings.ReconnectTimeout):
		}
	}
}

// handle drives one live channel: a keepalive writer and a read loop
// that decodes envelopes and routes them in arrival order.
func (self *SyncManager) handle(runCtx context.Context, channel Channel) closeReason {
	handleCtx, handleCancel := context.WithCancel(runCtx)
	defer handleCancel()

	// close the channel on teardown to unblock the read
	go func() {
		<-handleCtx.Done()
		channel.Close()
	}()

	go func() {
		for {
			select {
			case <-handleCtx.Done():
				return
			case <-time.After(self.settings.PingTimeout):
				if err := channel.WriteFrame([]byte{}); err != nil {
					handleCancel()
					return
				}
			}
		}
	}()

	for {
		frame, err := channel.ReadFrame()
		if err != nil {
			select {
			case <-runCtx.Done():
				return closeTeardown
			default:
			}
			glog.Infof("[sync]<- error = %s\n", err)
			return closeChannelLost
		}

		if len(frame) == 0 {
			// ping
			glog.V(2).Infof("[sync]ping<-\n")
			continue
		}

		var envelope Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			// one corrupt frame must not interrupt the session
			glog.Infof("[sync]invalid frame = %s: %s\n", err, string(frame))
			continue
		}

		if envelope.Type == EnvelopeTypeError {
			var brokerErr brokerError
			json.Unmarshal(envelope.Data, &brokerErr)
			glog.Infof("[sync]broker reported error = %s\n", brokerErr.Message)
			glog.Infof("[sync]broker error detail: %s\n", string(frame))
			self.status.setState(StateDisconnected)
			self.notify.Notify(NotifyError, fmt.Sprintf("Connection error: %s", brokerErr.Message))
			return closeBrokerError
		}

		glog.V(2).Infof("[sync]%s<-\n", envelope.Type)
		self.router.Route(envelope.Type, envelope.Data)
	}
}
