package session

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"recall-study/internal/llm"
)

func fixedAllocator() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("PART%02d", n)
	}
}

func TestTranscriptAndTurnCount(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")

	const turns = 5
	for i := 0; i < turns; i++ {
		s.AppendUser(fmt.Sprintf("question %d", i), nil)
		s.AppendAssistant(fmt.Sprintf("answer %d", i))
	}

	if got := len(s.History()); got != 2*turns {
		t.Fatalf("transcript length: want %d, got %d", 2*turns, got)
	}
	if got := s.TurnCount(); got != turns {
		t.Fatalf("turn count: want %d, got %d", turns, got)
	}
}

func TestTurnCountIncrementsOnUserAppend(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")

	s.AppendUser("hello", nil)
	if got := s.TurnCount(); got != 1 {
		t.Fatalf("turn count after user append: want 1, got %d", got)
	}
	if got := len(s.History()); got != 1 {
		t.Fatalf("transcript length mid-turn: want 1, got %d", got)
	}
	s.AppendAssistant("hi")
	if got := s.TurnCount(); got != 1 {
		t.Fatalf("turn count after assistant append: want 1, got %d", got)
	}
}

func TestHistoryCopySemantics(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")
	s.AppendUser("hello", nil)
	s.AppendAssistant("hi")

	msgs := s.History()
	msgs[0] = Message{Role: "user", Text: "mutated"}
	if got := s.History()[0].Text; got != "hello" {
		t.Fatalf("internal state mutated via returned slice: %q", got)
	}
}

func TestIdentityStability(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")
	before := s.ParticipantID()
	for i := 0; i < 10; i++ {
		s.AppendUser("q", nil)
		s.AppendAssistant("a")
	}
	if after := m.Get("h1").ParticipantID(); after != before {
		t.Fatalf("participant id changed: %q -> %q", before, after)
	}
}

func TestManagerLazyCreation(t *testing.T) {
	m := NewManager(fixedAllocator())
	if _, ok := m.Lookup("h1"); ok {
		t.Fatalf("session exists before first access")
	}
	a := m.Get("h1")
	b := m.Get("h2")
	if a.ParticipantID() == b.ParticipantID() {
		t.Fatalf("distinct handles share a participant id")
	}
	if again := m.Get("h1"); again != a {
		t.Fatalf("second access created a new session")
	}
}

func TestPageTransitionOneWay(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")
	if s.Page() != PageLanding {
		t.Fatalf("new session not on landing page")
	}
	s.AdvanceToChat()
	s.AdvanceToChat()
	if s.Page() != PageChat {
		t.Fatalf("session not on chat page after advance")
	}
}

func TestTakeAttachmentPrecedence(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")

	upload := &llm.Attachment{Kind: llm.ImageUpload, MIME: "image/jpeg", Data: []byte{1}}
	drawing := &llm.Attachment{Kind: llm.CanvasDrawing, MIME: "image/png", Data: []byte{2}}
	s.StageUpload(upload)
	s.StageDrawing(drawing)

	got := s.TakeAttachment()
	if got != upload {
		t.Fatalf("upload should beat drawing, got %+v", got)
	}
	// Both slots cleared after consumption.
	if s.TakeAttachment() != nil {
		t.Fatalf("attachment slots not cleared")
	}
}

func TestTakeAttachmentDrawingOnly(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")
	drawing := &llm.Attachment{Kind: llm.CanvasDrawing, MIME: "image/png", Data: []byte{2}}
	s.StageDrawing(drawing)
	if got := s.TakeAttachment(); got != drawing {
		t.Fatalf("want staged drawing, got %+v", got)
	}
}

func TestFormatForExportIdempotent(t *testing.T) {
	m := NewManager(fixedAllocator())
	s := m.Get("h1")
	s.AppendUser("What is neuroeconomics?", nil)
	s.AppendAssistant("A field combining neuroscience and economics.")

	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	first := s.FormatForExport(now)
	second := s.FormatForExport(now)
	if first != second {
		t.Fatalf("export not idempotent")
	}

	if !strings.Contains(first, "Participant ID: "+s.ParticipantID()) {
		t.Fatalf("export missing participant id:\n%s", first)
	}
	if !strings.Contains(first, "Date: 2026-03-14 10:30:00") {
		t.Fatalf("export missing timestamp:\n%s", first)
	}
	if !strings.Contains(first, "**You:**\nWhat is neuroeconomics?") {
		t.Fatalf("export missing user message:\n%s", first)
	}
	if !strings.Contains(first, "**AI Assistant:**\nA field combining neuroscience and economics.") {
		t.Fatalf("export missing assistant message:\n%s", first)
	}
	if idx := strings.Index(first, "**You:**"); idx > strings.Index(first, "**AI Assistant:**") {
		t.Fatalf("messages out of order:\n%s", first)
	}
}
