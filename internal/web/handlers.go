package web

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"recall-study/internal/llm"
	"recall-study/internal/session"
)

// maxUploadBytes caps attachment size; images beyond this are rejected
// before they reach the gateway.
const maxUploadBytes = 8 << 20

type chatView struct {
	StudyTitle    string
	ParticipantID string
	Messages      []session.Message
	TurnCount     int
	LogWarning    bool
	HasHistory    bool
}

type landingView struct {
	StudyTitle    string
	ParticipantID string
}

func (s *Server) handleRoot(c echo.Context) error {
	sess := s.session(c)
	if sess.Page() == session.PageLanding {
		return c.HTML(http.StatusOK, renderLanding(landingView{
			StudyTitle:    s.studyTitle,
			ParticipantID: sess.ParticipantID(),
		}))
	}
	msgs := sess.History()
	return c.HTML(http.StatusOK, renderChat(chatView{
		StudyTitle:    s.studyTitle,
		ParticipantID: sess.ParticipantID(),
		Messages:      msgs,
		TurnCount:     sess.TurnCount(),
		LogWarning:    c.QueryParam("logwarn") == "1",
		HasHistory:    len(msgs) > 0,
	}))
}

// handleProceed fires the one-way Landing -> Chat transition.
func (s *Server) handleProceed(c echo.Context) error {
	s.session(c).AdvanceToChat()
	return c.Redirect(http.StatusSeeOther, "/")
}

// handleSubmit executes one chat submission: stage any attachment carried by
// the form, run the turn, and redirect back to the chat view.
func (s *Server) handleSubmit(c echo.Context) error {
	sess := s.session(c)
	if sess.Page() != session.PageChat {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	prompt := strings.TrimSpace(c.FormValue("prompt"))
	if prompt == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	// Parse both attachment sources before staging either, so a rejected
	// form leaves no stale attachment behind for the next submission.
	upload, err := readUpload(c)
	if err != nil {
		return c.HTML(http.StatusBadRequest, renderError(fmt.Sprintf("Could not read the uploaded image: %v", err)))
	}
	drawing, err := readCanvas(c)
	if err != nil {
		return c.HTML(http.StatusBadRequest, renderError(fmt.Sprintf("Could not read the drawing: %v", err)))
	}
	if upload != nil {
		sess.StageUpload(upload)
	}
	if drawing != nil {
		sess.StageDrawing(drawing)
	}

	res := s.ctrl.Submit(c.Request().Context(), sess, prompt)
	if res.LogWarning != nil {
		return c.Redirect(http.StatusSeeOther, "/?logwarn=1")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// handleExport serves the transcript as a downloadable text document.
func (s *Server) handleExport(c echo.Context) error {
	sess := s.session(c)
	doc := sess.FormatForExport(time.Now())
	filename := fmt.Sprintf("chat_history_%s.txt", sess.ParticipantID())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
}

// readUpload extracts an uploaded image file from the form, when present.
func readUpload(c echo.Context) (*llm.Attachment, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		// No file part is the common case, not an error.
		return nil, nil
	}
	if fh.Size > maxUploadBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return &llm.Attachment{Kind: llm.ImageUpload, MIME: mime, Data: data}, nil
}

// readCanvas decodes the hidden canvas field, a data URL produced by
// toDataURL on the drawing canvas. An untouched canvas submits nothing.
func readCanvas(c echo.Context) (*llm.Attachment, error) {
	raw := strings.TrimSpace(c.FormValue("canvas"))
	if raw == "" {
		return nil, nil
	}
	mime, data, err := parseDataURL(raw)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &llm.Attachment{Kind: llm.CanvasDrawing, MIME: mime, Data: data}, nil
}

func parseDataURL(raw string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	mime, _, _ := strings.Cut(meta, ";")
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported data URL encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	if mime == "" {
		mime = "image/png"
	}
	return mime, data, nil
}
