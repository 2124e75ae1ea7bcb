package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"recall-study/internal/llm"
	"recall-study/internal/logsink"
	"recall-study/internal/session"
)

// ContextMode controls what is sent to the model gateway on each call. The
// mode is fixed for the life of the process, so it is consistent for every
// session.
type ContextMode string

const (
	// ContextFull sends the whole transcript so far (plus the optional
	// system prompt) as conversation context.
	ContextFull ContextMode = "full"
	// ContextLatest sends only the current prompt and its attachment; for
	// deployments where the model is stateless per call.
	ContextLatest ContextMode = "latest"
)

// Result is what the presentation layer needs after one completed
// submission. LogWarning carries a non-fatal sink failure; the turn itself
// is complete regardless.
type Result struct {
	Response   string
	TurnCount  int
	LogWarning error
}

// Controller drives the per-submission protocol: record the user turn, call
// the gateway, record the assistant turn, and externalize exactly one log
// entry. A gateway failure never aborts a turn; it becomes the assistant's
// text so the dataset keeps a record of the failed exchange.
type Controller struct {
	client         llm.Client
	sink           logsink.Sink
	systemPrompt   string
	contextMode    ContextMode
	gatewayTimeout time.Duration
}

func New(client llm.Client, sink logsink.Sink, systemPrompt string, mode ContextMode, gatewayTimeout time.Duration) *Controller {
	if mode == "" {
		mode = ContextFull
	}
	return &Controller{
		client:         client,
		sink:           sink,
		systemPrompt:   systemPrompt,
		contextMode:    mode,
		gatewayTimeout: gatewayTimeout,
	}
}

// Submit executes one participant submission for the session. It consumes
// the session's staged attachment (upload beats drawing), and guarantees the
// transcript gains exactly two messages and the sink receives exactly one
// entry per call.
func (c *Controller) Submit(ctx context.Context, s *session.Session, prompt string) Result {
	// One submission at a time per session: a second in-flight call would
	// interleave the user/assistant appends and mispair the transcript.
	s.LockSubmission()
	defer s.UnlockSubmission()

	att := s.TakeAttachment()
	kind := llm.TextOnly
	if att != nil {
		kind = att.Kind
	}

	s.AppendUser(prompt, att)
	turn := s.TurnCount()

	start := time.Now()
	responseText := c.generate(ctx, s, prompt, att)
	duration := time.Since(start)

	s.AppendAssistant(responseText)

	entry := logsink.Entry{
		Timestamp:      time.Now().UTC(),
		ParticipantID:  s.ParticipantID(),
		TurnCount:      turn,
		AttachmentKind: kind,
		PromptText:     prompt,
		ResponseText:   responseText,
		PromptLength:   len(prompt),
		ResponseLength: len(responseText),
		DurationMS:     duration.Milliseconds(),
	}

	res := Result{Response: responseText, TurnCount: turn}
	if err := c.sink.Append(entry); err != nil {
		// Logging is best-effort: the turn shown to the participant is
		// not rolled back.
		log.Printf("failed to log interaction for %s turn %d: %v", s.ParticipantID(), turn, err)
		res.LogWarning = err
	}
	return res
}

// generate calls the gateway and always returns displayable text. Failures
// are folded into an error description so the turn completes and is logged.
func (c *Controller) generate(ctx context.Context, s *session.Session, prompt string, att *llm.Attachment) string {
	if c.gatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.gatewayTimeout)
		defer cancel()
	}

	messages := c.buildContext(s, prompt, att)

	if sc, ok := c.client.(llm.StreamingClient); ok {
		text, err := assembleStream(ctx, sc, messages)
		if err != nil {
			log.Printf("gateway stream failed for %s: %v", s.ParticipantID(), err)
			return gatewayErrorText(err)
		}
		return text
	}

	resp, err := c.client.Generate(ctx, messages)
	if err != nil {
		log.Printf("gateway call failed for %s: %v", s.ParticipantID(), err)
		return gatewayErrorText(err)
	}
	return resp.Content
}

// buildContext reconstructs the conversation for the gateway. In full mode
// the transcript already contains the just-appended user message, so it is
// the complete context; in latest mode only the current prompt goes out.
func (c *Controller) buildContext(s *session.Session, prompt string, att *llm.Attachment) []llm.Message {
	var messages []llm.Message
	if c.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: c.systemPrompt})
	}
	if c.contextMode == ContextLatest {
		return append(messages, llm.Message{Role: "user", Content: prompt, Attachment: att})
	}
	for _, m := range s.History() {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Text, Attachment: m.Attachment})
	}
	return messages
}

// assembleStream drains the fragment channel into one string. A mid-stream
// error discards nothing already received but the turn is reported failed;
// context cancellation stops consumption.
func assembleStream(ctx context.Context, sc llm.StreamingClient, messages []llm.Message) (string, error) {
	fragments, err := sc.GenerateStream(ctx, messages)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		select {
		case f, ok := <-fragments:
			if !ok {
				return b.String(), nil
			}
			if f.Err != nil {
				return "", f.Err
			}
			b.WriteString(f.Text)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func gatewayErrorText(err error) string {
	return fmt.Sprintf("Error calling model gateway: %v", err)
}
