package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/michalovjan/depalign/internal/props"
)

type ValidationResult struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateWithResult runs the loader and adds the lint findings a hard
// loader error does not cover: rest-prefixed keys the schema does not know
// (likely typos), header pairs a server would reject, and the soft-disabled
// state.
func ValidateWithResult(p *props.Properties) (*State, ValidationResult) {
	res := ValidationResult{OK: true}

	state, err := Load(p)
	if err != nil {
		res.OK = false
		res.Errors = append(res.Errors, err.Error())
	}

	for _, name := range p.Keys() {
		if strings.HasPrefix(name, "rest") && !Recognized(name) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unrecognized property %q", name))
		}
	}
	res.Warnings = append(res.Warnings, checkHeaders(ParseHeaders(p.Get(keyHeaders)))...)
	if state != nil && !state.Enabled() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s is empty: alignment is disabled", keyURL))
	}

	return state, res
}

func FormatValidationJSON(res ValidationResult) (string, error) {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func FormatValidationText(res ValidationResult) string {
	if res.OK {
		if len(res.Warnings) == 0 {
			return "properties ok"
		}
		return fmt.Sprintf("properties ok (warnings: %d)", len(res.Warnings))
	}
	if len(res.Errors) == 0 {
		return "properties invalid"
	}
	return fmt.Sprintf("properties invalid: %s", res.Errors[0])
}
