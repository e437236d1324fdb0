package parser

import (
	"reflect"
	"strings"
	"testing"
)

const withSections = `---
title: "Test Entry"
date: 2026-02-15T12:00:00.000Z
timestamp: 1771156800000
---

## Feelings

I feel great about this feature implementation.

## Technical Insights

Go interfaces keep the search engine testable.`

func TestExtract_FrontmatterAndSections(t *testing.T) {
	r := Extract(withSections)

	want := []string{"Feelings", "Technical Insights"}
	if !reflect.DeepEqual(r.Sections, want) {
		t.Errorf("sections = %v, want %v", r.Sections, want)
	}
	if !strings.Contains(r.Text, "I feel great about this feature implementation") {
		t.Errorf("text missing body prose: %q", r.Text)
	}
	if !strings.Contains(r.Text, "Go interfaces keep the search engine testable") {
		t.Errorf("text missing second section: %q", r.Text)
	}
	if !strings.Contains(r.Text, "## Feelings") {
		t.Errorf("heading markup should stay in text: %q", r.Text)
	}
	for _, line := range []string{`title: "Test Entry"`, "timestamp: 1771156800000", "date: 2026-02-15"} {
		if strings.Contains(r.Text, line) {
			t.Errorf("text contains frontmatter line %q", line)
		}
	}
}

func TestExtract_NoSections(t *testing.T) {
	input := "---\ntitle: \"Entry\"\ndate: 2026-01-01T00:00:00.000Z\ntimestamp: 1000000000000\n---\n\nJust a plain paragraph with no sections."
	r := Extract(input)
	if r.Sections == nil || len(r.Sections) != 0 {
		t.Errorf("sections = %#v, want empty slice", r.Sections)
	}
	if r.Text != "Just a plain paragraph with no sections." {
		t.Errorf("text = %q", r.Text)
	}
}

func TestExtract_NoFrontmatter(t *testing.T) {
	r := Extract("## Only\nbody line\n")
	if r.Text != "## Only\nbody line" {
		t.Errorf("text = %q", r.Text)
	}
	if len(r.Sections) != 1 || r.Sections[0] != "Only" {
		t.Errorf("sections = %v", r.Sections)
	}
}

func TestExtract_UnterminatedFrontmatterIsBody(t *testing.T) {
	r := Extract("---\ntitle: never closed\nstill text")
	if !strings.Contains(r.Text, "title: never closed") {
		t.Errorf("unterminated block should stay in text: %q", r.Text)
	}
}

func TestExtract_OnlyLevelTwoHeadings(t *testing.T) {
	r := Extract("# Title\n### Deep\n##NoSpace\n## Kept  \n")
	if len(r.Sections) != 1 || r.Sections[0] != "Kept" {
		t.Errorf("sections = %v, want [Kept]", r.Sections)
	}
}

func TestExtract_CRLF(t *testing.T) {
	r := Extract("---\r\ntitle: x\r\n---\r\n## Feelings\r\nok\r\n")
	if len(r.Sections) != 1 || r.Sections[0] != "Feelings" {
		t.Errorf("sections = %v", r.Sections)
	}
	if strings.Contains(r.Text, "title: x") {
		t.Errorf("text = %q", r.Text)
	}
}

func TestExtract_Empty(t *testing.T) {
	r := Extract("")
	if r.Text != "" || len(r.Sections) != 0 {
		t.Errorf("got %+v", r)
	}
}

func TestTimestamp(t *testing.T) {
	ts, ok := Timestamp(withSections)
	if !ok || ts != 1771156800000 {
		t.Errorf("timestamp = %d, %v", ts, ok)
	}
	if _, ok := Timestamp("no frontmatter"); ok {
		t.Error("expected no timestamp")
	}
}

func TestFrontmatter_InvalidYAML(t *testing.T) {
	if fm := Frontmatter("---\n: invalid: yaml: {{{\n---\nBody\n"); fm != nil {
		t.Errorf("expected nil frontmatter, got %v", fm)
	}
}
