package app

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// loadDotenv reads KEY=value lines into the process environment. Variables
// already set to a non-empty value win over the file.
func loadDotenv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		key, val, ok, err := parseDotenvLine(sc.Text())
		if err != nil {
			return fmt.Errorf(".env line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		if cur, set := os.LookupEnv(key); set && cur != "" {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf(".env line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

func parseDotenvLine(raw string) (key, val string, ok bool, err error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false, nil
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, val, found := strings.Cut(line, "=")
	if !found {
		return "", "", false, errors.New("missing '='")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false, errors.New("empty key")
	}

	val = strings.TrimSpace(val)
	if len(val) >= 2 {
		switch {
		case val[0] == '"' && val[len(val)-1] == '"':
			u, err := strconv.Unquote(val)
			if err != nil {
				return "", "", false, err
			}
			val = u
		case val[0] == '\'' && val[len(val)-1] == '\'':
			val = val[1 : len(val)-1]
		}
	}
	return key, val, true, nil
}
