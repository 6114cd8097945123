package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"ride-realtime/internal/general/logger"
)

// Severity classifies a notification for presentation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether the severity is one of the known constants.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// Notification is one delivered item. Read moves one way (unread -> read);
// removal is terminal. Nothing outlives the session.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	UserID    string    `json:"userId,omitempty"`
	RideID    string    `json:"rideId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// Input is the caller-supplied part of a notification; id and creation time
// are assigned by the store.
type Input struct {
	Title    string
	Message  string
	Severity Severity
	UserID   string
	RideID   string
}

// NativeNotifier is the best-effort OS-level notification hook. Failures
// are swallowed: the in-store list is the source of truth.
type NativeNotifier interface {
	Notify(title, message string) error
}

// Store is the session-scoped, observer-pattern notification list.
// Subscribers receive a snapshot synchronously after every mutation and get
// an explicit unsubscribe handle back, so listener lifecycle is testable.
type Store struct {
	logger *logger.Logger
	native NativeNotifier

	mu      sync.Mutex
	items   []Notification // most-recent-first
	subs    map[int]func([]Notification)
	nextSub int
	seq     uint64
	now     func() time.Time
}

// NewStore creates an empty store. native may be nil.
func NewStore(log *logger.Logger, native NativeNotifier) *Store {
	return &Store{
		logger: log,
		native: native,
		subs:   make(map[int]func([]Notification)),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddNotification assigns an id and creation time, prepends the item, and
// notifies subscribers. When an OS-level notifier is wired and permitted, it
// is triggered best-effort.
func (s *Store) AddNotification(in Input) Notification {
	severity := in.Severity
	if !severity.Valid() {
		severity = SeverityInfo
	}

	s.mu.Lock()
	s.seq++
	n := Notification{
		ID:        newNotificationID(s.seq),
		Title:     strings.TrimSpace(in.Title),
		Message:   strings.TrimSpace(in.Message),
		Severity:  severity,
		UserID:    in.UserID,
		RideID:    in.RideID,
		CreatedAt: s.now(),
	}
	s.items = append([]Notification{n}, s.items...)
	s.mu.Unlock()

	s.publish()

	if s.native != nil {
		if err := s.native.Notify(n.Title, n.Message); err != nil {
			s.logger.Debug(context.Background(), "native_notification_failed",
				"OS-level notification not shown", map[string]any{"error": err.Error()})
		}
	}
	return n
}

// Subscribe registers a callback and returns its unsubscribe function.
// Multiple independent subscribers are supported.
func (s *Store) Subscribe(fn func([]Notification)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// MarkAsRead transitions one notification to read. Idempotent.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].Read {
			s.items[i].Read = true
			changed = true
			break
		}
	}
	s.mu.Unlock()

	if changed {
		s.publish()
	}
}

// MarkAllAsRead transitions every notification to read.
func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.mu.Unlock()

	s.publish()
}

// RemoveNotification deletes one notification by id.
func (s *Store) RemoveNotification(id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.publish()
}

// ClearAll removes everything.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.publish()
}

// GetNotifications returns a copy of the current list, most recent first.
func (s *Store) GetNotifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// GetUnreadCount returns the number of unread notifications.
func (s *Store) GetUnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// publish hands the current snapshot to every subscriber, synchronously.
// Callbacks run outside the lock so a subscriber may call back into the
// store.
func (s *Store) publish() {
	s.mu.Lock()
	snapshot := make([]Notification, len(s.items))
	copy(snapshot, s.items)
	subs := make([]func([]Notification), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// newNotificationID returns an id unique within the session, like
// "ntf_7_ab12cd".
func newNotificationID(seq uint64) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("ntf_%d_%s", seq, hex.EncodeToString(b[:]))
}
