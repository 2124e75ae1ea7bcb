package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// AttachmentKind classifies the optional image attached to a user turn.
type AttachmentKind int

const (
	TextOnly AttachmentKind = iota
	ImageUpload
	CanvasDrawing
)

// String returns the label written into log sink rows.
func (k AttachmentKind) String() string {
	switch k {
	case ImageUpload:
		return "Image Upload"
	case CanvasDrawing:
		return "Canvas Drawing"
	default:
		return "Text Only"
	}
}

// MarshalJSON writes the kind as its row label so log records stay
// readable by the study operators.
func (k AttachmentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *AttachmentKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Image Upload":
		*k = ImageUpload
	case "Canvas Drawing":
		*k = CanvasDrawing
	case "Text Only":
		*k = TextOnly
	default:
		return fmt.Errorf("unknown attachment kind %q", s)
	}
	return nil
}

// Attachment is one image associated with a single user turn, either an
// uploaded file or a freehand canvas drawing.
type Attachment struct {
	Kind AttachmentKind
	MIME string
	Data []byte
}

type Message struct {
	Role       string
	Content    string
	Attachment *Attachment
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Fragment is one incrementally produced piece of a streamed response.
// A non-nil Err terminates the stream; Text carries no data in that case.
type Fragment struct {
	Text string
	Err  error
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// StreamingClient is implemented by providers that deliver the response as a
// sequence of fragments. The channel is closed after the final fragment (or
// after one carrying an error); fragment texts concatenate to the full
// response. Consumers must drain the channel or cancel ctx.
type StreamingClient interface {
	Client
	GenerateStream(ctx context.Context, messages []Message) (<-chan Fragment, error)
}
