// Package parser turns raw journal Markdown into searchable text and section labels.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

var headingRe = regexp.MustCompile(`^##\s+(.+?)\s*$`)

// Extracted holds the searchable view of a note.
type Extracted struct {
	Text     string
	Sections []string
}

type state int

const (
	stateStart state = iota
	stateMetadata
	stateBody
)

// Extract strips a leading frontmatter block and collects "## " section labels.
// Heading lines stay part of Text. A frontmatter block without a closing
// delimiter is not frontmatter, so the whole input becomes body.
func Extract(raw string) Extracted {
	lines := splitLines(raw)

	st := stateStart
	bodyStart := 0
	for i, line := range lines {
		switch st {
		case stateStart:
			if strings.TrimSpace(line) == "" {
				continue
			}
			if strings.TrimRight(line, " \t") == delim {
				st = stateMetadata
				continue
			}
			st = stateBody
		case stateMetadata:
			if strings.TrimRight(line, " \t") == delim {
				st = stateBody
				bodyStart = i + 1
			}
		}
		if st == stateBody {
			break
		}
	}
	if st == stateMetadata {
		// Unterminated block.
		bodyStart = 0
	}

	body := lines[bodyStart:]
	sections := []string{}
	for _, line := range body {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			sections = append(sections, m[1])
		}
	}

	return Extracted{
		Text:     strings.TrimSpace(strings.Join(body, "\n")),
		Sections: sections,
	}
}

// Frontmatter decodes the leading YAML block. It returns nil when the note has
// no terminated block or the YAML is malformed.
func Frontmatter(raw string) map[string]any {
	lines := splitLines(raw)

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || strings.TrimRight(lines[i], " \t") != delim {
		return nil
	}
	start := i + 1
	for j := start; j < len(lines); j++ {
		if strings.TrimRight(lines[j], " \t") != delim {
			continue
		}
		var fm map[string]any
		if err := yaml.Unmarshal([]byte(strings.Join(lines[start:j], "\n")), &fm); err != nil {
			return nil
		}
		return fm
	}
	return nil
}

// Timestamp returns the epoch-millis "timestamp" frontmatter field.
func Timestamp(raw string) (int64, bool) {
	fm := Frontmatter(raw)
	if fm == nil {
		return 0, false
	}
	switch v := fm["timestamp"].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(raw, "\n")
}
