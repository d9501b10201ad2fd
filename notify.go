package confluxfs

import (
	"sync"

	"github.com/golang/glog"
)

type NotifyLevel int

const (
	NotifySuccess NotifyLevel = iota
	NotifyError
	NotifyInfo
)

func (self NotifyLevel) String() string {
	switch self {
	case NotifySuccess:
		return "success"
	case NotifyError:
		return "error"
	case NotifyInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Notifier is the boundary to whatever surface shows short-lived
// messages to the user. The core only calls into it.
type Notifier interface {
	Notify(level NotifyLevel, message string)
}

// LogNotifier writes notifications to the log. The default when no
// display surface is attached.
type LogNotifier struct {
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (self *LogNotifier) Notify(level NotifyLevel, message string) {
	glog.Infof("[notify]%s: %s\n", level, message)
}

type Toast struct {
	Id      Id
	Level   NotifyLevel
	Message string
}

// MemoryNotifier keeps a bounded buffer of notifications, oldest
// evicted first.
type MemoryNotifier struct {
	stateLock sync.Mutex

	cap    int
	toasts []*Toast
}

func NewMemoryNotifier(cap int) *MemoryNotifier {
	return &MemoryNotifier{
		cap:    cap,
		toasts: []*Toast{},
	}
}

func (self *MemoryNotifier) Notify(level NotifyLevel, message string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.toasts = append(self.toasts, &Toast{
		Id:      NewId(),
		Level:   level,
		Message: message,
	})
	if self.cap < len(self.toasts) {
		self.toasts = self.toasts[len(self.toasts)-self.cap:]
	}
}

func (self *MemoryNotifier) Remove(id Id) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	for i, toast := range self.toasts {
		if toast.Id == id {
			self.toasts = append(self.toasts[:i], self.toasts[i+1:]...)
			return
		}
	}
}

func (self *MemoryNotifier) Clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.toasts = []*Toast{}
}

func (self *MemoryNotifier) Toasts() []*Toast {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	out := make([]*Toast, len(self.toasts))
	copy(out, self.toasts)
	return out
}
