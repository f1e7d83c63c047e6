package client

import (
	"context"
	"sync"
	"time"

	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
)

const (
	// DefaultPollInterval is the fixed cadence of the sync loop
	DefaultPollInterval = 2 * time.Second

	// failureThreshold is how many consecutive poll failures flip the
	// loop into Degraded
	failureThreshold = 3
)

// Feed is the slice of the API the sync loop needs
type Feed interface {
	FetchFeed(ctx context.Context) (*models.FeedResponse, error)
	SendReadReceipt(ctx context.Context, lastReadMessageID string) error
}

// Notifier receives the loop's side effects. Implementations drive
// sounds, OS notifications and connection indicators.
type Notifier interface {
	PlaySound()
	Notify(title, body string)
	OfflineChanged(offline bool)
	BackOnline()
	MutationFailed(op string, err error)
}

// Viewport answers the questions the loop asks about the UI
type Viewport interface {
	NearBottom() bool
	ScrollToBottom()
	// Hidden and NotificationsGranted gate desktop notifications; the
	// loop never asks for permission itself
	Hidden() bool
	NotificationsGranted() bool
}

type Mode int

const (
	ModeConnected Mode = iota
	ModeDegraded
)

// LoopState is the sync loop's position in its two-state machine. It is
// passed through transitions as a value so the reconciliation logic is
// testable without a running loop.
type LoopState struct {
	Mode     Mode
	LatestID string
	Failures int
}

type pollOutcome struct {
	ok       bool
	latestID string
}

// advance computes the next state for one poll outcome, reporting the
// edge transitions that carry side effects
func advance(st LoopState, out pollOutcome) (next LoopState, wentDegraded, cameBack bool) {
	if out.ok {
		next = LoopState{Mode: ModeConnected, LatestID: out.latestID}
		cameBack = st.Mode == ModeDegraded
		return next, false, cameBack
	}

	next = st
	next.Failures++
	if next.Failures >= failureThreshold && st.Mode != ModeDegraded {
		next.Mode = ModeDegraded
		wentDegraded = true
	}
	return next, wentDegraded, false
}

// SyncLoop keeps a client eventually consistent with the shared feed by
// fixed-interval polling. It owns all client-local transient state; the
// optimistic mutation layer is the only other writer.
//
// Every feed response is treated as a full-replace snapshot keyed by
// latest-id comparison, never as an incremental patch, so an overlapping
// slow fetch can at worst cause a redundant render.
type SyncLoop struct {
	api      Feed
	notifier Notifier
	viewport Viewport
	selfID   string
	interval time.Duration

	mu            sync.Mutex
	state         LoopState
	messages      []models.FeedMessage
	seen          map[string]struct{}
	unread        int
	unreadMarker  string
	lastReceiptID string
	onlineUsers   []string
	typingUsers   []string
}

func NewSyncLoop(api Feed, notifier Notifier, viewport Viewport, selfID string) *SyncLoop {
	return &SyncLoop{
		api:      api,
		notifier: notifier,
		viewport: viewport,
		selfID:   selfID,
		interval: DefaultPollInterval,
		seen:     make(map[string]struct{}),
	}
}

// WithInterval overrides the poll cadence. For tests.
func (s *SyncLoop) WithInterval(d time.Duration) *SyncLoop {
	s.interval = d
	return s
}

// Run polls until ctx is cancelled
func (s *SyncLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll performs one fetch-and-reconcile step. Exported so tests can
// drive the cadence manually.
func (s *SyncLoop) Poll(ctx context.Context) {
	resp, err := s.api.FetchFeed(ctx)
	if err != nil {
		s.applyFailure()
		return
	}
	s.applySnapshot(ctx, resp)
}

func (s *SyncLoop) applyFailure() {
	s.mu.Lock()
	next, wentDegraded, _ := advance(s.state, pollOutcome{ok: false})
	s.state = next
	s.mu.Unlock()

	if wentDegraded {
		s.notifier.OfflineChanged(true)
	}
}

func (s *SyncLoop) applySnapshot(ctx context.Context, resp *models.FeedResponse) {
	s.mu.Lock()

	latest := resp.LatestID()
	prevLatest := s.state.LatestID
	next, _, cameBack := advance(s.state, pollOutcome{ok: true, latestID: latest})
	s.state = next
	s.onlineUsers = resp.OnlineUsers
	s.typingUsers = resp.TypingUsers

	// Same latest id twice is a no-op: no unread bumps, no sounds, no
	// duplicate receipts
	if latest == prevLatest {
		s.mu.Unlock()
		if cameBack {
			s.notifier.OfflineChanged(false)
			s.notifier.BackOnline()
		}
		return
	}

	// Genuinely new = never seen before, not merely returned again
	var fresh []string
	for _, m := range resp.Messages {
		if _, ok := s.seen[m.ID]; !ok {
			fresh = append(fresh, m.ID)
		}
	}

	s.messages = resp.Messages
	for _, id := range fresh {
		s.seen[id] = struct{}{}
	}

	var newest *models.FeedMessage
	if len(resp.Messages) > 0 {
		newest = &resp.Messages[len(resp.Messages)-1]
	}

	atBottom := s.viewport.NearBottom()
	var receiptID string
	if len(fresh) > 0 {
		if atBottom {
			if latest != s.lastReceiptID {
				s.lastReceiptID = latest
				receiptID = latest
			}
		} else {
			s.unread += len(fresh)
			if s.unreadMarker == "" {
				// One-time marker at the first unseen message
				for _, m := range resp.Messages {
					if isIn(fresh, m.ID) {
						s.unreadMarker = m.ID
						break
					}
				}
			}
		}
	}

	newestIsForeignFresh := newest != nil && newest.UserID != s.selfID && isIn(fresh, newest.ID)
	s.mu.Unlock()

	// Side effects outside the lock
	if cameBack {
		s.notifier.OfflineChanged(false)
		s.notifier.BackOnline()
	}
	if len(fresh) > 0 && atBottom {
		s.viewport.ScrollToBottom()
	}
	if receiptID != "" {
		_ = s.api.SendReadReceipt(ctx, receiptID)
	}
	if newestIsForeignFresh {
		s.notifier.PlaySound()
		if s.viewport.Hidden() && s.viewport.NotificationsGranted() {
			s.notifier.Notify(newest.DisplayName, previewText(newest))
		}
	}
}

func isIn(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func previewText(m *models.FeedMessage) string {
	switch {
	case m.Poll != nil:
		return "📊 " + m.Poll.Question
	case m.Content != "":
		return m.Content
	case m.AttachmentName != "":
		return "📎 " + m.AttachmentName
	default:
		return "New message"
	}
}

// NetworkChanged feeds explicit online/offline signals into the state
// machine, e.g. from the platform's connectivity events
func (s *SyncLoop) NetworkChanged(online bool) {
	s.mu.Lock()
	var wentDegraded, cameBack bool
	if !online {
		if s.state.Mode != ModeDegraded {
			s.state.Mode = ModeDegraded
			s.state.Failures = failureThreshold
			wentDegraded = true
		}
	} else if s.state.Mode == ModeDegraded {
		s.state.Mode = ModeConnected
		s.state.Failures = 0
		cameBack = true
	}
	s.mu.Unlock()

	if wentDegraded {
		s.notifier.OfflineChanged(true)
	}
	if cameBack {
		s.notifier.OfflineChanged(false)
		s.notifier.BackOnline()
	}
}

// ScrolledToBottom is called by the UI when the user returns to the
// bottom of the feed: unread resets and exactly one receipt goes out for
// the current latest id.
func (s *SyncLoop) ScrolledToBottom(ctx context.Context) {
	s.mu.Lock()
	s.unread = 0
	s.unreadMarker = ""
	latest := s.state.LatestID
	send := latest != "" && latest != s.lastReceiptID
	if send {
		s.lastReceiptID = latest
	}
	s.mu.Unlock()

	if send {
		_ = s.api.SendReadReceipt(ctx, latest)
	}
}

// Splice inserts a message the client itself just sent, so the UI shows
// it before the next poll. Marks it seen so the next snapshot containing
// it triggers no new-message side effects.
func (s *SyncLoop) Splice(msg models.FeedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	s.seen[msg.ID] = struct{}{}
	s.state.LatestID = msg.ID
}

// Messages returns a copy of the local message array
func (s *SyncLoop) Messages() []models.FeedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FeedMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *SyncLoop) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// UnreadMarker returns the id of the first unseen message, "" when the
// one-time marker is not shown
func (s *SyncLoop) UnreadMarker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadMarker
}

func (s *SyncLoop) State() LoopState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SyncLoop) OnlineUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.onlineUsers...)
}

func (s *SyncLoop) TypingUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.typingUsers...)
}
