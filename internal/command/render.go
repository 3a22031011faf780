// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package command

import (
	"strings"

	"github.com/canonical/sqlrecord/dialect"
	"github.com/canonical/sqlrecord/driver"
)

// Render returns the command text with every placeholder replaced by the
// literal form of its parameter value, terminated by the statement
// separator. It is meant for logging, never for execution.
//
// Placeholders inside quoted strings and identifiers are left alone. "?" is
// matched positionally, "$n" and "@pn" by ordinal.
func Render(cmd *driver.Command, provider dialect.Provider) string {
	params := cmd.Parameters()
	literal := func(ordinal int) (string, bool) {
		if ordinal < 1 || ordinal > len(params) {
			return "", false
		}
		p := params[ordinal-1]
		return provider.FormatLiteral(p.Value, p.Declared), true
	}

	text := cmd.Text
	var out strings.Builder
	positional := 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch ch {
		case '\'', '"', '`', '[':
			end := closing(text, i)
			out.WriteString(text[i:end])
			i = end - 1
			continue
		case '?':
			positional++
			if lit, ok := literal(positional); ok {
				out.WriteString(lit)
				continue
			}
		case '$':
			if n, end := ordinalAt(text, i+1); end > i+1 {
				if lit, ok := literal(n); ok {
					out.WriteString(lit)
					i = end - 1
					continue
				}
			}
		case '@':
			if i+1 < len(text) && text[i+1] == 'p' {
				if n, end := ordinalAt(text, i+2); end > i+2 {
					if lit, ok := literal(n); ok {
						out.WriteString(lit)
						i = end - 1
						continue
					}
				}
			}
		}
		out.WriteByte(ch)
	}

	rendered := strings.TrimSpace(out.String())
	sep := provider.StatementSeparator()
	if !strings.HasSuffix(rendered, sep) {
		rendered += sep
	}
	return rendered
}

// Placeholders returns the number of parameters the text refers to in the
// placeholder style of provider: the count of "?" for positional dialects,
// the highest ordinal for "$n" and "@pn". Quoted sections are skipped.
func Placeholders(text string, provider dialect.Provider) int {
	style := provider.Placeholder(1)
	count := 0
	for i := 0; i < len(text); i++ {
		switch ch := text[i]; {
		case ch == '\'' || ch == '"' || ch == '`' || ch == '[':
			i = closing(text, i) - 1
		case ch == '?' && style == "?":
			count++
		case ch == '$' && style == "$1":
			if n, end := ordinalAt(text, i+1); end > i+1 {
				count = max(count, n)
				i = end - 1
			}
		case ch == '@' && style == "@p1" && i+1 < len(text) && text[i+1] == 'p':
			if n, end := ordinalAt(text, i+2); end > i+2 {
				count = max(count, n)
				i = end - 1
			}
		}
	}
	return count
}

// closing returns the index just past the quoted section starting at
// start. Doubled closing characters are treated as escapes.
func closing(text string, start int) int {
	open := text[start]
	end := open
	if open == '[' {
		end = ']'
	}
	for i := start + 1; i < len(text); i++ {
		if text[i] != end {
			continue
		}
		if i+1 < len(text) && text[i+1] == end {
			i++
			continue
		}
		return i + 1
	}
	return len(text)
}

// ordinalAt parses the decimal number starting at i. It returns the number
// and the index just past it, which equals i when there is no number.
func ordinalAt(text string, i int) (int, int) {
	n, j := 0, i
	for j < len(text) && text[j] >= '0' && text[j] <= '9' {
		n = n*10 + int(text[j]-'0')
		j++
	}
	// A name such as @param is not a placeholder.
	if j < len(text) && (text[j] == '_' || text[j] >= 'a' && text[j] <= 'z' || text[j] >= 'A' && text[j] <= 'Z') {
		return 0, i
	}
	return n, j
}
