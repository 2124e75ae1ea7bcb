package web

import (
	"bytes"
	"html/template"
	"log"
)

func renderLanding(v landingView) string {
	return render(landingTmpl, v)
}

func renderChat(v chatView) string {
	return render(chatTmpl, v)
}

func renderError(msg string) string {
	return render(errorTmpl, msg)
}

func render(t *template.Template, data interface{}) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.Printf("template render failed: %v", err)
		return "<html><body>internal error</body></html>"
	}
	return buf.String()
}

var (
	landingTmpl = template.Must(template.New("landing").Parse(landingHTML))
	chatTmpl    = template.Must(template.New("chat").Parse(chatHTML))
	errorTmpl   = template.Must(template.New("error").Parse(errorHTML))
)

const baseCSS = `
body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
.chat-message { padding: 0.8rem 1rem; border-radius: 12px; margin-bottom: 1rem; max-width: 75%; line-height: 1.5; }
.chat-message.user { background-color: #DCF8C6; margin-left: auto; text-align: right; }
.chat-message.assistant { background-color: #F1F0F0; margin-right: auto; text-align: left; }
.id-box { background-color: #e8f0fe; border-left: 4px solid #1a73e8; padding: 1rem; margin: 1rem 0; }
.warn { background-color: #fff3cd; border-left: 4px solid #ffb300; padding: 0.6rem 1rem; margin: 1rem 0; }
textarea { width: 100%; box-sizing: border-box; }
canvas { border: 1px solid #ccc; touch-action: none; }
`

const landingHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.StudyTitle}}</title><style>` + baseCSS + `</style></head>
<body>
<h1>Welcome to the {{.StudyTitle}}</h1>
<h2>About This Research Project</h2>
<p>You have been invited to participate in a research project that explores how using a
Large Language Model (LLM) during a learning task affects the ability to recall knowledge later.</p>
<p><strong>Please do not use any other LLM or the web during this study. It is important to use
only the assistant provided here.</strong></p>
<p><strong>Take note of your anonymous ID. Do not close this tab during the entire session.</strong></p>
<div class="id-box">Your anonymous participant ID is: <strong>{{.ParticipantID}}</strong><br>
Please write this ID down.</div>
<form method="POST" action="/proceed">
  <button type="submit">Proceed to Chat Interface</button>
</form>
</body>
</html>`

const chatHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.StudyTitle}}</title><style>` + baseCSS + `</style></head>
<body>
<h1>Learning Assistant</h1>
<div class="warn">Your Anonymous Participant ID: <strong>{{.ParticipantID}}</strong></div>
{{if .LogWarning}}<div class="warn">The last interaction could not be saved to the study log. Your chat is unaffected; please notify the study coordinator.</div>{{end}}
<hr>
{{range .Messages}}
<div class="chat-message {{if eq .Role "user"}}user{{else}}assistant{{end}}">{{.Text}}</div>
{{end}}
<form method="POST" action="/chat" enctype="multipart/form-data" id="chat-form">
  <textarea name="prompt" rows="3" placeholder="Type your question here..." required></textarea>
  <p><label>Attach an image: <input type="file" name="image" accept="image/*"></label></p>
  <p>Or draw below:</p>
  <canvas id="draw" width="400" height="200"></canvas>
  <input type="hidden" name="canvas" id="canvas-data">
  <p><button type="submit">Send</button> <button type="button" onclick="clearCanvas()">Clear drawing</button></p>
</form>
{{if .HasHistory}}<p><a href="/export">📥 Download Chat History</a></p>{{end}}
<script>
var canvas = document.getElementById('draw');
var ctx = canvas.getContext('2d');
var drawing = false, dirty = false;
ctx.fillStyle = '#fff';
ctx.fillRect(0, 0, canvas.width, canvas.height);
function pos(e) {
  var r = canvas.getBoundingClientRect();
  var p = e.touches ? e.touches[0] : e;
  return {x: p.clientX - r.left, y: p.clientY - r.top};
}
function start(e) { drawing = true; var p = pos(e); ctx.beginPath(); ctx.moveTo(p.x, p.y); e.preventDefault(); }
function move(e) { if (!drawing) return; dirty = true; var p = pos(e); ctx.lineTo(p.x, p.y); ctx.stroke(); e.preventDefault(); }
function stop() { drawing = false; }
function clearCanvas() { ctx.fillRect(0, 0, canvas.width, canvas.height); dirty = false; }
canvas.addEventListener('mousedown', start);
canvas.addEventListener('mousemove', move);
canvas.addEventListener('mouseup', stop);
canvas.addEventListener('touchstart', start);
canvas.addEventListener('touchmove', move);
canvas.addEventListener('touchend', stop);
document.getElementById('chat-form').addEventListener('submit', function () {
  if (dirty) { document.getElementById('canvas-data').value = canvas.toDataURL('image/png'); }
});
</script>
</body>
</html>`

const errorHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Error</title><style>` + baseCSS + `</style></head>
<body>
<div class="warn">{{.}}</div>
<p><a href="/">Back to chat</a></p>
</body>
</html>`
