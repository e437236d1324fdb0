package mcpserver

// EntryFormat describes how journal entries are laid out on disk so that
// clients can interpret search results and read entries back.
const EntryFormat = `# Journal Entry Format

Entries are Markdown files in one of two journals:

- **project**: ` + "`" + `<project>/.ai-journal/` + "`" + `, notes about the codebase.
- **user**: ` + "`" + `~/.ai-journal/` + "`" + ` (or ` + "`" + `$JOURNAL_USER_DIR` + "`" + `), everything personal.

## Layout

` + "```" + `
<root>/YYYY-MM-DD/YYYY-MM-DD_HH-MM-SS-mmm.md
<root>/YYYY-MM-DD/YYYY-MM-DD_HH-MM-SS-mmm.embedding
` + "```" + `

The ` + "`" + `.embedding` + "`" + ` file is a JSON cache of the entry's vector and is
rebuilt automatically; never edit it by hand.

## Structure

` + "```" + `markdown
---
title: "Thoughts - 2026-03-14 09:26"
date: 2026-03-14T09:26:53.589Z
timestamp: 1773480413589
---

## Feelings

Relieved the flaky test is gone.

## Technical Insights

Polling with a deadline beats fixed sleeps in watcher tests.
` + "```" + `

## Sections

| tool argument        | heading                 | journal |
|----------------------|-------------------------|---------|
| project_notes        | ## Project Notes        | project |
| feelings             | ## Feelings             | user    |
| user_context         | ## User Context         | user    |
| technical_insights   | ## Technical Insights   | user    |
| world_knowledge      | ## World Knowledge      | user    |

Section filters in ` + "`" + `search_journal` + "`" + ` match these headings by
case-insensitive substring, so ` + "`" + `"technical"` + "`" + ` finds
` + "`" + `## Technical Insights` + "`" + `.
`
