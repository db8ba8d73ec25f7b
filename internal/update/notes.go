package update

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// Only treat notes as HTML when they carry tags GitHub renders into release bodies.
	htmlHint        = regexp.MustCompile(`(?i)<(p|div|br|ul|ol|li|a|strong|em|tt|code|pre|h[1-6])\b`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
	nbspReplacement = strings.NewReplacer("\u00a0", " ", "\r\n", "\n")
)

// NoteEntry is one element of a per-version release notes list.
type NoteEntry struct {
	Version string `json:"version" yaml:"version"`
	Note    any    `json:"note" yaml:"note"`
}

// NormalizeNotes turns release notes from a feed into plain text. raw may be
// a string (plain or HTML), a list of per-version entries, or any other value,
// which is rendered as indented JSON.
func NormalizeNotes(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return normalizeNoteText(v)
	case []NoteEntry:
		return joinNoteEntries(v)
	case []any:
		entries := make([]NoteEntry, 0, len(v))
		for _, item := range v {
			entries = append(entries, noteEntryFromAny(item))
		}
		return joinNoteEntries(entries)
	default:
		payload, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return normalizeNoteText(fmt.Sprint(v))
		}
		return normalizeNoteText(string(payload))
	}
}

func noteEntryFromAny(item any) NoteEntry {
	fields, ok := item.(map[string]any)
	if !ok {
		return NoteEntry{Note: item}
	}
	entry := NoteEntry{Note: fields["note"]}
	if version, ok := fields["version"]; ok && version != nil {
		entry.Version = fmt.Sprint(version)
	}
	return entry
}

func joinNoteEntries(entries []NoteEntry) string {
	blocks := make([]string, 0, len(entries))
	for _, entry := range entries {
		var noteText string
		switch note := entry.Note.(type) {
		case nil:
		case string:
			noteText = note
		default:
			if payload, err := json.MarshalIndent(note, "", "  "); err == nil {
				noteText = string(payload)
			}
		}
		lines := make([]string, 0, 2)
		if version := strings.TrimSpace(entry.Version); version != "" {
			lines = append(lines, "v"+version)
		}
		if text := normalizeNoteText(noteText); text != "" {
			lines = append(lines, text)
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func normalizeNoteText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if looksLikeHTML(trimmed) {
		return htmlToPlainText(trimmed)
	}
	return trimmed
}

func looksLikeHTML(s string) bool {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return false
	}
	return htmlHint.MatchString(s)
}

type anchorText struct {
	href string
	text strings.Builder
}

func htmlToPlainText(src string) string {
	var out strings.Builder
	var anchor *anchorText
	skipDepth := 0

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed tail; keep what was decoded so far.
			break
		}

		switch tt {
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := string(z.Text())
			if anchor != nil {
				anchor.text.WriteString(text)
			} else {
				out.WriteString(text)
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || anchor != nil {
				continue
			}
			switch tag {
			case "a":
				anchor = &anchorText{href: hrefAttr(z, hasAttr)}
			case "br":
				out.WriteString("\n")
			case "li":
				out.WriteString("- ")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			if anchor != nil {
				if tag == "a" {
					out.WriteString(renderAnchor(anchor))
					anchor = nil
				}
				continue
			}
			switch tag {
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol":
				out.WriteString("\n")
			}
		}
	}
	if anchor != nil {
		out.WriteString(anchor.text.String())
	}

	text := nbspReplacement.Replace(out.String())
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func hrefAttr(z *html.Tokenizer, hasAttr bool) string {
	for hasAttr {
		var key, value []byte
		key, value, hasAttr = z.TagAttr()
		if strings.EqualFold(string(key), "href") {
			return strings.TrimSpace(string(value))
		}
	}
	return ""
}

func renderAnchor(a *anchorText) string {
	inner := strings.TrimSpace(a.text.String())
	switch {
	case a.href == "":
		return inner
	case inner == "":
		return a.href
	default:
		return inner + " (" + a.href + ")"
	}
}
