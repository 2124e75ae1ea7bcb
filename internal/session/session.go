package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"recall-study/internal/llm"
)

// Page is the participant-visible page for a session. The transition
// Landing -> Chat fires once and is never reversed.
type Page int

const (
	PageLanding Page = iota
	PageChat
)

// Message is one transcript entry. The attachment, when present, is owned by
// the transcript entry and not shared elsewhere.
type Message struct {
	Role       string
	Text       string
	Attachment *llm.Attachment
}

// Session holds the per-participant state for one run of the study: a stable
// anonymous ID, the append-only transcript, the turn counter and any staged
// attachment. All methods are safe for concurrent use, although a session is
// normally driven by a single logical thread of control.
type Session struct {
	mu sync.Mutex

	// submitMu serializes whole submissions: between a user append and
	// its paired assistant append exactly one gateway call may be
	// outstanding, so concurrent submissions on one session (browser
	// double-submit) must queue rather than interleave.
	submitMu sync.Mutex

	participantID string
	turnCount     int
	transcript    []Message
	page          Page

	// Staged attachments for the next submission. Both slots may be
	// populated at once; TakeAttachment applies the upload-beats-drawing
	// tie-break and clears both.
	pendingUpload  *llm.Attachment
	pendingDrawing *llm.Attachment
}

func newSession(participantID string) *Session {
	return &Session{participantID: participantID, page: PageLanding}
}

// ParticipantID is immutable for the session's lifetime.
func (s *Session) ParticipantID() string {
	return s.participantID
}

func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// AdvanceToChat moves the session to the chat page. Idempotent; there is no
// way back to the landing page.
func (s *Session) AdvanceToChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageChat
}

// LockSubmission acquires the session for one full submission; it is held
// across the gateway call, not just the state mutations.
func (s *Session) LockSubmission() {
	s.submitMu.Lock()
}

func (s *Session) UnlockSubmission() {
	s.submitMu.Unlock()
}

// AppendUser appends a user message and increments the turn counter. The
// counter moves here, not when the assistant message arrives: appending the
// user side marks the intent to start a new turn.
func (s *Session) AppendUser(text string, att *llm.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
	s.transcript = append(s.transcript, Message{Role: "user", Text: text, Attachment: att})
}

// AppendAssistant appends the paired assistant message, completing the turn.
// Callers must invoke it exactly once per AppendUser, substituting an error
// description as the text when the gateway fails.
func (s *Session) AppendAssistant(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Message{Role: "assistant", Text: text})
}

// History returns a copy of the transcript in conversational order. The
// returned slice is detached from internal state.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) StageUpload(att *llm.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingUpload = att
}

func (s *Session) StageDrawing(att *llm.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDrawing = att
}

// TakeAttachment consumes the staged attachment for one submission. When
// both an upload and a drawing are staged the upload wins; both slots are
// cleared regardless. Returns nil when nothing is staged.
func (s *Session) TakeAttachment() *llm.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	att := s.pendingUpload
	if att == nil {
		att = s.pendingDrawing
	}
	s.pendingUpload = nil
	s.pendingDrawing = nil
	return att
}

// FormatForExport renders the transcript into a downloadable text document.
// Pure function of the current state and the supplied timestamp: repeated
// calls with no intervening submissions yield identical output.
func (s *Session) FormatForExport(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("Chat History\n")
	fmt.Fprintf(&b, "Participant ID: %s\n", s.participantID)
	fmt.Fprintf(&b, "Date: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	for _, m := range s.transcript {
		role := "AI Assistant"
		if m.Role == "user" {
			role = "You"
		}
		fmt.Fprintf(&b, "**%s:**\n%s\n\n", role, m.Text)
		b.WriteString("---\n\n")
	}
	return b.String()
}

// Manager owns all live sessions, keyed by an opaque handle (the web layer
// uses a cookie value). Sessions are created lazily on first access, which
// is when the participant identity is allocated.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	allocate func() string
}

func NewManager(allocate func() string) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		allocate: allocate,
	}
}

// Get returns the session for the handle, creating it on first access.
func (m *Manager) Get(handle string) *Session {
	m.mu.RLock()
	s := m.sessions[handle]
	m.mu.RUnlock()
	if s != nil {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s = m.sessions[handle]; s != nil {
		return s
	}
	s = newSession(m.allocate())
	m.sessions[handle] = s
	return s
}

// Lookup returns the session without creating one.
func (m *Manager) Lookup(handle string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[handle]
	return s, ok
}
