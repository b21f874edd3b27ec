package web

import (
	"html/template"
	"net/http"

	"github.com/dsakai3418/paybot/internal/session"
)

var chatTmpl = template.Must(template.New("chat").Parse(chatPage))
var errorTmpl = template.Must(template.New("error").Parse(errorPage))

type chatPageData struct {
	CompanyName string
	Transcript  []session.Turn
}

func (s *Server) renderChat(w http.ResponseWriter, sess session.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatTmpl.Execute(w, chatPageData{
		CompanyName: sess.Customer.CompanyName,
		Transcript:  sess.Transcript,
	}); err != nil {
		s.deps.Logger.Error("render chat page", "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := errorTmpl.Execute(w, msg); err != nil {
		s.deps.Logger.Error("render error page", "error", err)
	}
}

const chatPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Payment Consultation Desk</title>
<style>
  body { font-family: sans-serif; max-width: 640px; margin: 0 auto; padding: 1rem; background: #f7f7f8; }
  h1 { font-size: 1.2rem; }
  #transcript { display: flex; flex-direction: column; gap: .5rem; margin-bottom: 1rem; }
  .turn { padding: .6rem .8rem; border-radius: .6rem; white-space: pre-wrap; max-width: 85%; }
  .assistant { background: #fff; border: 1px solid #ddd; align-self: flex-start; }
  .user { background: #d3e6fb; align-self: flex-end; }
  form { display: flex; gap: .5rem; }
  input { flex: 1; padding: .6rem; border: 1px solid #ccc; border-radius: .4rem; }
  button { padding: .6rem 1rem; }
  #error { color: #b00020; min-height: 1.2em; }
</style>
</head>
<body>
<h1>Payment Consultation Desk</h1>
<div id="transcript">
{{range .Transcript}}  <div class="turn {{.Role}}">{{.Text}}</div>
{{end}}</div>
<p id="error"></p>
<form id="chat">
  <input id="message" autocomplete="off" placeholder="Type here..." required>
  <button type="submit">Send</button>
</form>
<script>
const transcript = document.getElementById("transcript");
const errorEl = document.getElementById("error");
const input = document.getElementById("message");

function addTurn(role, text) {
  const div = document.createElement("div");
  div.className = "turn " + role;
  div.textContent = text;
  transcript.appendChild(div);
  div.scrollIntoView();
}

document.getElementById("chat").addEventListener("submit", async (e) => {
  e.preventDefault();
  const text = input.value.trim();
  if (!text) return;
  addTurn("user", text);
  input.value = "";
  errorEl.textContent = "";
  try {
    const resp = await fetch("/api/v1/chat", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ message: text }),
    });
    const body = await resp.json();
    if (!resp.ok) {
      errorEl.textContent = body.error || "Something went wrong. Please try again.";
      return;
    }
    addTurn("assistant", body.reply);
  } catch (err) {
    errorEl.textContent = "Something went wrong. Please try again.";
  }
});
</script>
</body>
</html>
`

const errorPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Payment Consultation Desk</title>
<style>
  body { font-family: sans-serif; max-width: 640px; margin: 0 auto; padding: 1rem; }
  .error { color: #b00020; border: 1px solid #b00020; border-radius: .4rem; padding: 1rem; }
</style>
</head>
<body>
<h1>Payment Consultation Desk</h1>
<p class="error">{{.}}</p>
</body>
</html>
`
