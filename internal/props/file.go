package props

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseFile reads a properties file: one key=value per line, '#' comments,
// blank lines skipped. Values may be wrapped in single or double quotes;
// double quotes unescape Go-style. Later occurrences of a key win.
func ParseFile(path string) (*Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func Parse(r io.Reader) (*Properties, error) {
	p := New()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("properties line %d: missing '='", lineNo)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("properties line %d: empty key", lineNo)
		}
		val = strings.TrimSpace(val)
		if len(val) >= 2 {
			if val[0] == '"' && val[len(val)-1] == '"' {
				u, err := strconv.Unquote(val)
				if err != nil {
					return nil, fmt.Errorf("properties line %d: %w", lineNo, err)
				}
				val = u
			} else if val[0] == '\'' && val[len(val)-1] == '\'' {
				val = val[1 : len(val)-1]
			}
		}

		p.Set(key, val)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseFlag splits one -D command-line definition of form key=value. A bare
// key with no '=' is set to the empty string.
func ParseFlag(def string) (string, string, error) {
	key, val, ok := strings.Cut(def, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("property definition %q: empty key", def)
	}
	if !ok {
		return key, "", nil
	}
	return key, val, nil
}
