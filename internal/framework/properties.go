// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// escapePropertyKey escapes a key the way java.util.Properties stores it.
func escapePropertyKey(key string) string {
	return escapeProperty(key, true)
}

// escapePropertyValue escapes a value; only a leading space needs protecting.
func escapePropertyValue(value string) string {
	return escapeProperty(value, false)
}

func escapeProperty(s string, isKey bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\f':
			b.WriteString(`\f`)
		case ' ':
			if isKey || i == 0 {
				b.WriteString(`\ `)
			} else {
				b.WriteByte(' ')
			}
		case '=', ':', '#', '!':
			if isKey {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			switch {
			case r < 0x20 || r > 0x7e:
				// config.ini is read as ISO-8859-1.
				for _, unit := range utf16.Encode([]rune{r}) {
					fmt.Fprintf(&b, `\u%04X`, unit)
				}
			default:
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
