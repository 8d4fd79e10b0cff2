// Package render turns the automation endpoint's JSON replies into
// chat-displayable payloads. Rendering is total: any input byte sequence
// produces a payload, never an error. Malformed bodies degrade to a
// generic textual fallback that preserves the original content.
package render

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"relaybot/internal/domain"
)

const (
	successText      = "✅ Action effectuée avec succès"
	degradedText     = "✅ Action effectuée"
	defaultAudioName = "response_audio.wav"

	previewLimit     = 100
	descriptionLimit = 100
	noteBodyLimit    = 150
)

// actionEmojis maps endpoint actions to a display emoji. Unknown or absent
// actions fall back to the plain check mark.
var actionEmojis = map[string]string{
	"get_email":     "📧",
	"send_email":    "📨",
	"get_calendar":  "📅",
	"send_calendar": "🗓️",
	"note":          "📝",
	"task":          "✅",
	"other":         "💡",
}

// Render parses a raw webhook reply body and produces a displayable payload.
//
// The endpoint may answer with a StructuredReply object, a one-element array
// wrapping one (only element 0 is considered, per the documented contract),
// or an audio variant {"type":"audio","data":<base64>,...} which short-circuits
// everything else.
func Render(raw []byte) domain.Payload {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		// Not JSON at all: keep the body visible for the user.
		return domain.TextPayload("✅ Réponse:\n```\n" + string(raw) + "\n```")
	}

	if list, ok := data.([]any); ok {
		if len(list) == 0 {
			return domain.TextPayload(successText)
		}
		data = list[0]
	}

	// Audio short-circuit: takes priority over action-based dispatch.
	if m, ok := data.(map[string]any); ok && stringField(m, "type") == "audio" {
		audio, err := base64.StdEncoding.DecodeString(stringField(m, "data"))
		if err != nil {
			return domain.TextPayload(degradedText)
		}
		filename := stringField(m, "filename")
		if filename == "" {
			filename = defaultAudioName
		}
		return domain.AudioPayload(audio, filename)
	}

	m, ok := data.(map[string]any)
	if !ok {
		return domain.TextPayload(fmt.Sprintf("✅ Réponse:\n```\n%v\n```", data))
	}

	action := stringField(m, "action")
	output, _ := m["output"].(map[string]any)
	if len(output) == 0 {
		return domain.TextPayload(successText)
	}

	outputType := stringField(output, "type")
	content := stringField(output, "content")
	items, _ := output["items"].([]any)

	emoji, ok := actionEmojis[action]
	if !ok {
		emoji = "✅"
	}

	switch {
	case action == "get_email" || outputType == "email_summary":
		return domain.TextPayload(formatEmailList(emoji, content, items))
	case action == "send_email" || outputType == "email_sent":
		return domain.TextPayload(emoji + " **" + content + "**")
	case action == "get_calendar" || outputType == "calendar_events":
		return domain.TextPayload(formatCalendarEvents(emoji, content, items))
	case action == "send_calendar" || outputType == "calendar_event_created":
		return domain.TextPayload(emoji + " **" + content + "**")
	case action == "note" || outputType == "note_created" || outputType == "note_updated" || outputType == "note_list":
		return domain.TextPayload(formatNotes(emoji, content, items))
	case action == "task" || outputType == "task_created" || outputType == "task_updated" || outputType == "task_list":
		return domain.TextPayload(formatTasks(emoji, content, items))
	case len(items) > 0:
		return domain.TextPayload(formatGenericList(emoji, content, items))
	case content != "":
		return domain.TextPayload(emoji + " **" + content + "**")
	}

	// Fallback: dump the full reply so nothing is silently lost.
	dump, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return domain.TextPayload(degradedText)
	}
	return domain.TextPayload(emoji + " Réponse:\n```json\n" + string(dump) + "\n```")
}

func formatEmailList(emoji, content string, items []any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n", emoji, content)

	for idx, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		subject := pick(item, "Sans objet", "subject")
		sender := pick(item, "Inconnu", "sender", "from")
		date := pick(item, "", "date", "received")
		preview := pick(item, "", "preview", "snippet")

		fmt.Fprintf(&sb, "**%d.** %s\n", idx+1, subject)
		fmt.Fprintf(&sb, "   📨 De: %s\n", sender)
		if date != "" {
			fmt.Fprintf(&sb, "   📅 %s\n", FormatDate(date))
		}
		if preview != "" {
			fmt.Fprintf(&sb, "   💬 %s\n", truncate(preview, previewLimit))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatCalendarEvents(emoji, content string, items []any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n", emoji, content)

	for idx, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		title := pick(item, "Sans titre", "title", "summary")
		start := pick(item, "", "start", "start_time")
		end := pick(item, "", "end", "end_time")
		location := pick(item, "", "location")
		description := pick(item, "", "description")

		fmt.Fprintf(&sb, "**%d.** %s\n", idx+1, title)
		if start != "" {
			fmt.Fprintf(&sb, "   🕐 Début: %s\n", FormatDate(start))
		}
		if end != "" {
			fmt.Fprintf(&sb, "   🕐 Fin: %s\n", FormatDate(end))
		}
		if location != "" {
			fmt.Fprintf(&sb, "   📍 Lieu: %s\n", location)
		}
		if description != "" {
			fmt.Fprintf(&sb, "   📄 %s\n", truncate(description, descriptionLimit))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatNotes(emoji, content string, items []any) string {
	if len(items) == 0 {
		return emoji + " **" + content + "**"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n", emoji, content)

	for idx, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		title := pick(item, "Sans titre", "title")
		body := pick(item, "", "body", "content")
		created := pick(item, "", "created", "created_at")

		fmt.Fprintf(&sb, "**%d.** %s\n", idx+1, title)
		if body != "" {
			fmt.Fprintf(&sb, "   %s\n", truncate(body, noteBodyLimit))
		}
		if created != "" {
			fmt.Fprintf(&sb, "   🕐 %s\n", FormatDate(created))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var priorityIcons = map[string]string{
	"high":   "🔴",
	"medium": "🟡",
	"low":    "🟢",
}

func formatTasks(emoji, content string, items []any) string {
	if len(items) == 0 {
		return emoji + " **" + content + "**"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n", emoji, content)

	for idx, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		title := pick(item, "Sans titre", "title", "name")
		priority := pick(item, "", "priority")
		dueDate := pick(item, "", "due_date", "due")

		statusIcon := "⬜"
		if taskDone(firstValue(item, "status", "completed")) {
			statusIcon = "✅"
		}
		fmt.Fprintf(&sb, "%s **%d.** %s\n", statusIcon, idx+1, title)

		if priority != "" {
			icon, ok := priorityIcons[strings.ToLower(priority)]
			if !ok {
				icon = "⚪"
			}
			fmt.Fprintf(&sb, "   %s Priorité: %s\n", icon, priority)
		}
		if dueDate != "" {
			fmt.Fprintf(&sb, "   📅 Échéance: %s\n", FormatDate(dueDate))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatGenericList(emoji, content string, items []any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n", emoji, content)

	for idx, raw := range items {
		switch item := raw.(type) {
		case string:
			fmt.Fprintf(&sb, "**%d.** %s\n", idx+1, item)
		case map[string]any:
			title := pick(item, "", "title", "name", "text")
			if title == "" {
				title = fmt.Sprintf("%v", item)
			}
			fmt.Fprintf(&sb, "**%d.** %s\n", idx+1, title)

			// Remaining fields, sorted for stable output.
			keys := make([]string, 0, len(item))
			for k := range item {
				if k == "title" || k == "name" || k == "text" {
					continue
				}
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if truthy(item[k]) {
					fmt.Fprintf(&sb, "   • %s: %v\n", k, item[k])
				}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// pick resolves a display field against an ordered list of candidate keys,
// first match wins. Missing or empty values yield the fallback.
func pick(item map[string]any, fallback string, keys ...string) string {
	for _, k := range keys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			s = fmt.Sprintf("%v", v)
		}
		if s != "" {
			return s
		}
	}
	return fallback
}

// firstValue returns the raw value of the first present candidate key.
func firstValue(item map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := item[k]; ok {
			return v
		}
	}
	return nil
}

// stringField reads a top-level string field; non-strings read as empty.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func taskDone(v any) bool {
	switch s := v.(type) {
	case bool:
		return s
	case string:
		return s == "completed" || s == "done"
	}
	return false
}

// truthy mirrors loose JSON truthiness: empty strings, zeros, false, nil
// and empty collections are all falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// truncate limits s to max characters, appending an ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
