// Package chat holds the client-side session state of a one-to-one
// messaging app: the contact directory, the open conversation and the
// per-contact unread ledger.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatstore/internal/bus"
	"github.com/matheus3301/chatstore/internal/notify"
	"go.uber.org/zap"
)

var (
	ErrNoSelection    = errors.New("no conversation selected")
	ErrUnknownContact = errors.New("unknown contact")
)

// API is the REST backend the store reads from and posts to.
type API interface {
	ListContacts(ctx context.Context) ([]Contact, error)
	ListMessages(ctx context.Context, contactID string) ([]Message, error)
	SendMessage(ctx context.Context, contactID string, msg OutgoingMessage) (Message, error)
}

// Persister receives the full snapshot after every mutation.
type Persister interface {
	Persist(Snapshot)
}

// Presence answers who is online. The set is owned elsewhere.
type Presence interface {
	IsOnline(id string) bool
	CountExcluding(self string) int
}

// Store is the session state container. All mutations are serialized by a
// single mutex; REST calls run outside it.
type Store struct {
	mu sync.Mutex

	api       API
	persister Persister
	presence  Presence
	notifier  notify.Sink
	bus       *bus.Bus
	logger    *zap.Logger
	selfID    string

	contacts            []Contact
	selected            *Contact
	messages            []Message
	unread              *Ledger
	// Fetches in flight. Overlapping loads each hold one count.
	contactsInflight     int
	conversationInflight int
}

// Option configures a Store.
type Option func(*Store)

// WithPresence lets the directory filter contacts by online state.
func WithPresence(p Presence) Option {
	return func(s *Store) { s.presence = p }
}

// WithBus publishes store.* events on b.
func WithBus(b *bus.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithSelfID names the local user so presence counts can exclude it.
func WithSelfID(id string) Option {
	return func(s *Store) { s.selfID = id }
}

// WithSnapshot seeds the store from a restored snapshot.
func WithSnapshot(snap Snapshot) Option {
	return func(s *Store) { s.load(snap) }
}

// NewStore creates an empty store. persister and notifier may be nil.
func NewStore(api API, persister Persister, notifier notify.Sink, logger *zap.Logger, opts ...Option) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		api:       api,
		persister: persister,
		notifier:  notifier,
		logger:    logger,
		contacts:  []Contact{},
		messages:  []Message{},
		unread:    NewLedger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load(snap Snapshot) {
	snap = snap.Normalize()
	ledger, err := LedgerFrom(snap.Unread)
	if err != nil {
		s.logger.Warn("discarding invalid unread ledger", zap.Error(err))
		ledger = NewLedger()
	}
	s.contacts = slices.Clone(snap.Contacts)
	s.selected = cloneContact(snap.Selected)
	s.messages = cloneMessages(snap.Messages)
	s.unread = ledger
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:             SnapshotVersion,
		Contacts:            slices.Clone(s.contacts),
		Selected:            cloneContact(s.selected),
		Messages:            cloneMessages(s.messages),
		Unread:              s.unread.Entries(),
		ContactsLoading:     s.contactsInflight > 0,
		ConversationLoading: s.conversationInflight > 0,
	}
}

// Reset drops all state, as at the start of a new session.
func (s *Store) Reset() {
	s.mu.Lock()
	s.load(EmptySnapshot())
	s.persistLocked()
	s.mu.Unlock()
	s.publish(bus.KindSelectionChanged, "")
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	s.persister.Persist(s.snapshotLocked())
}

func (s *Store) publish(kind string, payload any) {
	s.bus.Publish(bus.NewEvent(kind, payload))
}

// fail surfaces an external-call failure to the user.
func (s *Store) fail(op string, err error) {
	s.logger.Warn(op+" failed", zap.Error(err))
	s.notifier.Notify(notify.Error, userMessage(err))
}

// userMessage prefers the server-reported text when the error carries one.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// ContactsLoading reports whether a directory fetch is in flight.
func (s *Store) ContactsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contactsInflight > 0
}

// ConversationLoading reports whether a history fetch is in flight.
func (s *Store) ConversationLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationInflight > 0
}

// beginFetch counts one more fetch in flight on n and returns the func that
// ends it. Restored snapshots never carry counts, so loading flags read from
// a snapshot are ignored.
func (s *Store) beginFetch(n *int) func() {
	s.mu.Lock()
	*n++
	s.persistLocked()
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		*n--
		s.persistLocked()
		s.mu.Unlock()
	}
}

func (s *Store) isSelectedLocked(contactID string) bool {
	return s.selected != nil && s.selected.ID == contactID
}

func (s *Store) contactLocked(id string) (Contact, bool) {
	i := slices.IndexFunc(s.contacts, func(c Contact) bool { return c.ID == id })
	if i < 0 {
		return Contact{}, false
	}
	return s.contacts[i], true
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
