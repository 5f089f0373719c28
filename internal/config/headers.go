package config

import (
	"fmt"
	"strings"

	"github.com/michalovjan/depalign/internal/rest"
)

// ParseHeaders turns a "key:value,key2:value2" string into ordered header
// pairs. An entry without a colon becomes an empty-value header; entries
// whose key is blank are dropped. A repeated key overwrites the value but
// keeps the key's first position. There is no escaping: values must not
// contain commas.
func ParseHeaders(raw string) []rest.Header {
	var out []rest.Header
	index := make(map[string]int)
	for _, entry := range strings.Split(raw, ",") {
		name, value, _ := strings.Cut(entry, ":")
		if strings.TrimSpace(name) == "" {
			continue
		}
		if i, ok := index[name]; ok {
			out[i].Value = value
			continue
		}
		index[name] = len(out)
		out = append(out, rest.Header{Name: name, Value: value})
	}
	return out
}

// checkHeaders flags header pairs an HTTP server would reject. The parse
// itself is tolerant, so these surface as validation warnings only.
func checkHeaders(headers []rest.Header) []string {
	var warnings []string
	for _, h := range headers {
		if h.Name != strings.TrimSpace(h.Name) {
			warnings = append(warnings, fmt.Sprintf("%s: header %q has leading or trailing whitespace", keyHeaders, h.Name))
			continue
		}
		if !validHeaderFieldName(h.Name) {
			warnings = append(warnings, fmt.Sprintf("%s: header %q has an invalid field name", keyHeaders, h.Name))
		}
		if !validHeaderFieldValue(h.Value) {
			warnings = append(warnings, fmt.Sprintf("%s: header %q has an invalid field value", keyHeaders, h.Name))
		}
	}
	return warnings
}

func validHeaderFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isTokenByte(name[i]) {
			return false
		}
	}
	return true
}

func isTokenByte(b byte) bool {
	if b >= '0' && b <= '9' {
		return true
	}
	if b >= 'A' && b <= 'Z' {
		return true
	}
	if b >= 'a' && b <= 'z' {
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	default:
		return false
	}
}

func validHeaderFieldValue(value string) bool {
	for i := 0; i < len(value); i++ {
		b := value[i]
		if b == '\r' || b == '\n' || b == 0x7f {
			return false
		}
		if b < 0x20 && b != '\t' {
			return false
		}
	}
	return true
}
