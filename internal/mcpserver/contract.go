package mcpserver

// ImportFormatContract describes the Markdown files the import folder accepts.
const ImportFormatContract = `# Folio Import Format

Files placed in the import folder become articles. Each file is one article;
editing the file updates it and deleting the file deletes it.

## Structure

` + "```" + `markdown
---
title: Human-readable title     # optional; falls back to the first "# " heading
author: ann                     # optional; falls back to import.default_author
tags:                           # optional; YAML list or "a, b" string
  - go
  - databases
created: 2025-01-15             # optional; date or RFC 3339 datetime
---

Body text in Markdown.
` + "```" + `

## Rules

1. Only files ending in ` + "`" + `.md` + "`" + ` are imported. Names starting with a dot are ignored.
2. ` + "`" + `title` + "`" + ` is required after fallback (at most 200 characters).
3. ` + "`" + `author` + "`" + ` is required after fallback (at most 40 characters).
4. The body must not be empty. HTML is reduced to a safe subset.
5. Tags are matched by exact name. Empty entries such as ` + "`" + `a,,b` + "`" + ` reject the
   whole file, and the joined tag field may be at most 100 characters.
6. ` + "`" + `created` + "`" + ` is read only when the article is first imported.

## Example

` + "```" + `markdown
---
title: Indexing strategies
author: ann
tags: [databases, performance]
created: 2025-01-20
---

Covering indexes avoid a second lookup.
` + "```" + `
`
