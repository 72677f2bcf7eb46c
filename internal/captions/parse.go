package captions

import (
	"encoding/xml"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/iconidentify/chalkboard/internal/domain"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Parse decodes a caption document. XML flavours (timedtext, srv3, TTML)
// are sniffed from the leading bytes; anything else is parsed as WebVTT.
// Records come back in document order with empty cues dropped.
func Parse(content string) []domain.CaptionRecord {
	trimmed := strings.TrimSpace(strings.TrimPrefix(content, "﻿"))
	if isXML(trimmed) {
		return parseXML(trimmed)
	}
	return parseVTT(trimmed)
}

func isXML(s string) bool {
	for _, prefix := range []string{"<?xml", "<transcript", "<timedtext", "<tt"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// cue is an element being collected while walking the XML token stream.
type cue struct {
	kind  string // "text" or "p"
	attrs map[string]string
	depth int
	text  strings.Builder
}

// parseXML handles three layouts:
//   - timedtext / srv1: <text start="1.2" dur="3.4">...</text>
//   - srv3:             <p t="1200" d="3400"><s>...</s></p>   (milliseconds)
//   - TTML:             <p begin="00:00:01.200" end="00:00:04.600">...</p>
//
// <text> records win when present; otherwise <p> records are used.
func parseXML(content string) []domain.CaptionRecord {
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var textRecs, pRecs []domain.CaptionRecord
	var cur *cue

	for {
		tok, err := dec.Token()
		if err != nil {
			// io.EOF or malformed trailing markup: keep what was parsed.
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cur != nil {
				cur.depth++
				if t.Name.Local == "br" {
					cur.text.WriteByte(' ')
				}
				continue
			}
			if t.Name.Local == "text" || t.Name.Local == "p" {
				cur = &cue{kind: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
				for _, a := range t.Attr {
					cur.attrs[a.Name.Local] = a.Value
				}
			}
		case xml.CharData:
			if cur != nil {
				cur.text.Write(t)
			}
		case xml.EndElement:
			if cur == nil {
				continue
			}
			if cur.depth > 0 {
				cur.depth--
				continue
			}
			rec, ok := cur.record()
			if ok {
				if cur.kind == "text" {
					textRecs = append(textRecs, rec)
				} else {
					pRecs = append(pRecs, rec)
				}
			}
			cur = nil
		}
	}

	if len(textRecs) > 0 {
		return textRecs
	}
	return pRecs
}

func (c *cue) record() (domain.CaptionRecord, bool) {
	text := cleanText(c.text.String())
	if text == "" {
		return domain.CaptionRecord{}, false
	}

	var start, dur float64
	switch {
	case c.kind == "text":
		start = parseFloat(c.attrs["start"])
		dur = parseFloat(c.attrs["dur"])
	case c.attrs["t"] != "":
		start = parseFloat(c.attrs["t"]) / 1000
		dur = parseFloat(c.attrs["d"]) / 1000
	default:
		start = parseTimeExpression(c.attrs["begin"])
		switch {
		case c.attrs["end"] != "":
			dur = parseTimeExpression(c.attrs["end"]) - start
		case c.attrs["dur"] != "":
			dur = parseTimeExpression(c.attrs["dur"])
		}
	}
	if dur < 0 {
		dur = 0
	}
	return domain.CaptionRecord{Start: start, Duration: dur, Text: text}, true
}

// parseVTT reads WebVTT (and SRT-style) cues. Each cue is a timing line
// "start --> end [settings]" followed by text lines up to a blank line.
func parseVTT(content string) []domain.CaptionRecord {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var records []domain.CaptionRecord
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		left, right, ok := strings.Cut(line, "-->")
		if !ok {
			continue
		}

		start, okStart := parseClock(strings.TrimSpace(left))
		endFields := strings.Fields(right)
		if !okStart || len(endFields) == 0 {
			continue
		}
		end, okEnd := parseClock(endFields[0])
		if !okEnd {
			continue
		}

		var body []string
		for i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next == "" || strings.Contains(next, "-->") {
				break
			}
			body = append(body, next)
			i++
		}

		text := cleanText(strings.Join(body, " "))
		if text == "" {
			continue
		}
		dur := end - start
		if dur < 0 {
			dur = 0
		}
		records = append(records, domain.CaptionRecord{Start: start, Duration: dur, Text: text})
	}
	return records
}

// parseClock parses HH:MM:SS.mmm, MM:SS.mmm or SS.mmm with "." or "," as the
// fraction separator.
func parseClock(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}

	total := 0.0
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		if i < len(parts)-1 {
			total = (total + v) * 60
		} else {
			total += v
		}
	}
	return total, true
}

// parseTimeExpression handles TTML time expressions: clock times, offsets
// with an s/ms suffix, and bare seconds. Unparseable input is 0.
func parseTimeExpression(s string) float64 {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0
	case strings.Contains(s, ":"):
		v, _ := parseClock(s)
		return v
	case strings.HasSuffix(s, "ms"):
		return parseFloat(strings.TrimSuffix(s, "ms")) / 1000
	case strings.HasSuffix(s, "s"):
		return parseFloat(strings.TrimSuffix(s, "s"))
	default:
		return parseFloat(s)
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
	if err != nil {
		return 0
	}
	return v
}

// cleanText unescapes entities, strips inline markup and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
