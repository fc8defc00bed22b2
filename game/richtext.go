package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"unicode/utf16"
)

// RawContent is draft.js raw editor content as produced by convertToRaw.
type RawContent struct {
	Blocks    []RawBlock             `json:"blocks"`
	EntityMap map[string]interface{} `json:"entityMap"`
}

type RawBlock struct {
	Key               string             `json:"key"`
	Text              string             `json:"text"`
	Type              string             `json:"type"`
	Depth             int                `json:"depth"`
	InlineStyleRanges []InlineStyleRange `json:"inlineStyleRanges"`
}

// InlineStyleRange offsets and lengths count UTF-16 code units.
type InlineStyleRange struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Style  string `json:"style"`
}

type style uint8

const (
	styleBold style = 1 << iota
	styleItalic
	styleUnderline
)

var styleTags = []struct {
	style style
	tag   string
}{
	{styleBold, "b"},
	{styleItalic, "i"},
	{styleUnderline, "u"},
}

func parseStyle(s string) style {
	switch s {
	case "BOLD":
		return styleBold
	case "ITALIC":
		return styleItalic
	case "UNDERLINE":
		return styleUnderline
	}
	return 0
}

// RichText is a question title. It decodes from either a markup string or
// draft.js raw content and always encodes as markup.
type RichText struct {
	Markup string
	Plain  string
}

func (r RichText) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Markup)
}

func (r *RichText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var markup string
		if err := json.Unmarshal(data, &markup); err != nil {
			return err
		}
		r.Markup = markup
		r.Plain = stripTags(markup)
		return nil
	}
	var raw RawContent
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rich text must be a string or draft.js raw content: %w", err)
	}
	r.Markup = raw.Markup()
	r.Plain = raw.PlainText()
	return nil
}

func (c RawContent) PlainText() string {
	parts := make([]string, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// Markup renders every block as a line of HTML, joined by <br>.
func (c RawContent) Markup() string {
	lines := make([]string, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		lines = append(lines, b.markup())
	}
	return strings.Join(lines, "<br>")
}

func (b RawBlock) markup() string {
	units := utf16.Encode([]rune(b.Text))
	styles := make([]style, len(units))
	for _, r := range b.InlineStyleRanges {
		s := parseStyle(r.Style)
		if s == 0 {
			continue
		}
		for i := r.Offset; i < r.Offset+r.Length && i < len(units); i++ {
			if i >= 0 {
				styles[i] |= s
			}
		}
	}

	var out strings.Builder
	var open style
	start := 0
	flush := func(end int) {
		if end > start {
			out.WriteString(html.EscapeString(string(utf16.Decode(units[start:end]))))
		}
		start = end
	}
	for i := range units {
		if styles[i] == open {
			continue
		}
		// Surrogate pairs share one style; never split them.
		if i > 0 && isLowSurrogate(units[i]) && isHighSurrogate(units[i-1]) {
			styles[i] = open
			continue
		}
		flush(i)
		closeTags(&out, open)
		open = styles[i]
		openTags(&out, open)
	}
	flush(len(units))
	closeTags(&out, open)
	return out.String()
}

func isHighSurrogate(u uint16) bool { return u >= 0xd800 && u < 0xdc00 }

func isLowSurrogate(u uint16) bool { return u >= 0xdc00 && u < 0xe000 }

func openTags(out *strings.Builder, s style) {
	for _, t := range styleTags {
		if s&t.style != 0 {
			out.WriteString("<" + t.tag + ">")
		}
	}
}

func closeTags(out *strings.Builder, s style) {
	for i := len(styleTags) - 1; i >= 0; i-- {
		if s&styleTags[i].style != 0 {
			out.WriteString("</" + styleTags[i].tag + ">")
		}
	}
}

func stripTags(markup string) string {
	markup = strings.ReplaceAll(markup, "<br>", "\n")
	var out strings.Builder
	inTag := false
	for _, r := range markup {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	return html.UnescapeString(out.String())
}
