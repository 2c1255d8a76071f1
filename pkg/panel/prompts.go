package panel

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var hostTmpl = template.Must(template.New("host").Parse(`This is a round-table talk show discussing the topic: {{.Topic}}

Tonight's guests:
{{.GuestIntros}}

Discussion so far:
{{.Transcript}}

{{if .Closing}}The show is ending. Summarize the discussion and thank the guests.
{{else}}The next speaker is: {{.NextSpeaker}}.
{{end}}
You are the show's host, {{.HostName}}. If the show has not started yet, open it by
introducing the guests and the topic, then hand the floor to the next speaker.
Otherwise react briefly to the last remark and hand over. Reply with only what
you would say on air.`))

var playerTmpl = template.Must(template.New("player").Parse(`This is a round-table talk show discussing the topic: {{.Topic}}

Tonight's guests: {{.GuestNames}}

Discussion so far:
{{.Transcript}}

You are playing {{.Name}}.
About you: {{.Description}}
Your nature: {{.Nature}}
Your experience: {{.Experience}}

It is your turn. Stay in character and reply with only what you would say on air.`))

var personaTmpl = template.Must(template.New("persona").Parse(`Generate a detailed introduction for the public figure "{{.Name}}".
Respond with a single JSON object, no prose:
{
  "name": "...",
  "description": "...",
  "nature": "...",
  "experience": "..."
}`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// transcriptText flattens the transcript for a prompt; an empty transcript
// reads as the show not having started yet.
func transcriptText(lines []string) string {
	if len(lines) == 0 {
		return "(the show has not started yet)"
	}
	return strings.Join(lines, "\n")
}

func guestIntros(personas []Persona) string {
	intros := make([]string, 0, len(personas))
	for _, p := range personas {
		intros = append(intros, p.Name+": "+p.Description)
	}
	return strings.Join(intros, "\n")
}

func guestNames(personas []Persona) string {
	names := make([]string, 0, len(personas))
	for _, p := range personas {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
