package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recall-study/internal/chat"
	"recall-study/internal/llm"
	"recall-study/internal/logsink"
	"recall-study/internal/session"
)

type echoClient struct {
	lastMsgs []llm.Message
}

func (f *echoClient) Generate(_ context.Context, messages []llm.Message) (llm.Response, error) {
	f.lastMsgs = messages
	return llm.Response{Content: "echo: " + messages[len(messages)-1].Content}, nil
}

type memorySink struct {
	entries []logsink.Entry
}

func (m *memorySink) Append(e logsink.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

type fixture struct {
	server *Server
	client *echoClient
	sink   *memorySink
	cookie *http.Cookie
}

func newFixture(t *testing.T) *fixture {
	client := &echoClient{}
	sink := &memorySink{}
	sessions := session.NewManager(func() string { return "AB12CD" })
	ctrl := chat.New(client, sink, "", chat.ContextFull, 0)
	return &fixture{
		server: NewServer(sessions, ctrl, "Neuroeconomics Learning Study"),
		client: client,
		sink:   sink,
	}
}

// do issues a request through the echo instance, carrying the session cookie
// across calls the way a browser would.
func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	if f.cookie != nil {
		req.AddCookie(f.cookie)
	}
	rec := httptest.NewRecorder()
	f.server.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			f.cookie = c
		}
	}
	return rec
}

func TestLandingShowsParticipantID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "AB12CD")
	assert.Contains(t, body, "Proceed to Chat Interface")
	require.NotNil(t, f.cookie, "session cookie not issued")
}

func TestProceedTransitionsToChat(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))

	rec := f.do(httptest.NewRequest(http.MethodPost, "/proceed", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "Type your question here")
	assert.NotContains(t, rec.Body.String(), "Proceed to Chat Interface")
}

func TestSubmitRendersTurn(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	f.do(httptest.NewRequest(http.MethodPost, "/proceed", nil))

	rec := f.do(multipartRequest(t, map[string]string{"prompt": "What is neuroeconomics?"}, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "What is neuroeconomics?")
	assert.Contains(t, body, "echo: What is neuroeconomics?")

	require.Len(t, f.sink.entries, 1)
	assert.Equal(t, "AB12CD", f.sink.entries[0].ParticipantID)
	assert.Equal(t, 1, f.sink.entries[0].TurnCount)
}

func TestSubmitUploadBeatsCanvas(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	f.do(httptest.NewRequest(http.MethodPost, "/proceed", nil))

	canvasData := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{9, 9})
	req := multipartRequest(t,
		map[string]string{"prompt": "describe this", "canvas": canvasData},
		&filePart{field: "image", name: "photo.jpg", mime: "image/jpeg", data: []byte{1, 2, 3}},
	)
	rec := f.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	require.Len(t, f.sink.entries, 1)
	assert.Equal(t, llm.ImageUpload, f.sink.entries[0].AttachmentKind)

	// The gateway saw the uploaded image, not the drawing.
	last := f.client.lastMsgs[len(f.client.lastMsgs)-1]
	require.NotNil(t, last.Attachment)
	assert.Equal(t, "image/jpeg", last.Attachment.MIME)
}

func TestSubmitCanvasOnly(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	f.do(httptest.NewRequest(http.MethodPost, "/proceed", nil))

	canvasData := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{9, 9})
	rec := f.do(multipartRequest(t, map[string]string{"prompt": "my sketch", "canvas": canvasData}, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	require.Len(t, f.sink.entries, 1)
	assert.Equal(t, llm.CanvasDrawing, f.sink.entries[0].AttachmentKind)
}

func TestRejectedFormStagesNothing(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	f.do(httptest.NewRequest(http.MethodPost, "/proceed", nil))

	// Valid image plus a malformed canvas field: the form is rejected and
	// no turn runs.
	req := multipartRequest(t,
		map[string]string{"prompt": "describe this", "canvas": "data:image/png;base64,%%%not-base64%%%"},
		&filePart{field: "image", name: "photo.jpg", mime: "image/jpeg", data: []byte{1, 2, 3}},
	)
	rec := f.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, f.sink.entries)

	// The next, text-only submission must not inherit the rejected image.
	rec = f.do(multipartRequest(t, map[string]string{"prompt": "just text"}, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, f.sink.entries, 1)
	assert.Equal(t, llm.TextOnly, f.sink.entries[0].AttachmentKind)

	last := f.client.lastMsgs[len(f.client.lastMsgs)-1]
	assert.Nil(t, last.Attachment)
}

func TestSubmitBeforeProceedRedirects(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))

	rec := f.do(multipartRequest(t, map[string]string{"prompt": "too early"}, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, f.sink.entries)
}

func TestExportDownload(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	f.do(httptest.NewRequest(http.MethodPost, "/proceed", nil))
	f.do(multipartRequest(t, map[string]string{"prompt": "hello"}, nil))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echoHeaderContentDisposition), "chat_history_AB12CD.txt")

	body := rec.Body.String()
	assert.Contains(t, body, "Participant ID: AB12CD")
	assert.Contains(t, body, "**You:**\nhello")
	assert.Contains(t, body, "**AI Assistant:**\necho: hello")
}

const echoHeaderContentDisposition = "Content-Disposition"

type filePart struct {
	field, name, mime string
	data              []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.mime)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(file.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/chat", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
