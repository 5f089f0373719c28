package config

import (
	"strings"
	"testing"

	"github.com/michalovjan/depalign/internal/props"
)

func TestValidateWithResult_CleanProperties(t *testing.T) {
	p := props.FromMap(map[string]string{
		keyURL:     "https://da.example.com",
		keyHeaders: "Log-Context:build-7",
	})
	state, res := ValidateWithResult(p)
	if !res.OK {
		t.Fatalf("validation failed: %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings: got %v, want none", res.Warnings)
	}
	if state == nil || !state.Enabled() {
		t.Fatal("expected an enabled state")
	}
}

func TestValidateWithResult_UnrecognizedKeys(t *testing.T) {
	p := props.FromMap(map[string]string{
		keyURL:        "https://da.example.com",
		"restUrl":     "https://typo.example.com",
		"restMaxsize": "10",
		"otherThing":  "ignored",
	})
	_, res := ValidateWithResult(p)
	if !res.OK {
		t.Fatalf("validation failed: %v", res.Errors)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("warnings: got %v, want 2", res.Warnings)
	}
	joined := strings.Join(res.Warnings, "\n")
	for _, typo := range []string{"restUrl", "restMaxsize"} {
		if !strings.Contains(joined, typo) {
			t.Fatalf("warnings %v do not mention %q", res.Warnings, typo)
		}
	}
	if strings.Contains(joined, "otherThing") {
		t.Fatalf("warned about a key outside the rest namespace: %v", res.Warnings)
	}
}

func TestValidateWithResult_ScopedKeysAreRecognized(t *testing.T) {
	p := props.FromMap(map[string]string{
		keyURL:                        "https://da.example.com",
		scopedRanksPrefix + "org.acme": "1.0;2.0",
	})
	_, res := ValidateWithResult(p)
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings: got %v, want none", res.Warnings)
	}
}

func TestValidateWithResult_DisabledWarning(t *testing.T) {
	state, res := ValidateWithResult(props.New())
	if !res.OK {
		t.Fatalf("validation failed: %v", res.Errors)
	}
	if state == nil {
		t.Fatal("expected a state")
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "disabled") {
		t.Fatalf("warnings: got %v", res.Warnings)
	}
}

func TestValidateWithResult_HeaderWarning(t *testing.T) {
	p := props.FromMap(map[string]string{
		keyURL:     "https://da.example.com",
		keyHeaders: " padded:v",
	})
	_, res := ValidateWithResult(p)
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "whitespace") {
		t.Fatalf("warnings: got %v", res.Warnings)
	}
}

func TestValidateWithResult_LoaderError(t *testing.T) {
	p := props.FromMap(map[string]string{keySuffixAlign: "ture"})
	state, res := ValidateWithResult(p)
	if res.OK {
		t.Fatal("expected validation to fail")
	}
	if state != nil {
		t.Fatal("expected no state on a loader error")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], keySuffixAlign) {
		t.Fatalf("errors: got %v", res.Errors)
	}
}

func TestFormatValidationText(t *testing.T) {
	cases := []struct {
		name string
		res  ValidationResult
		want string
	}{
		{"ok", ValidationResult{OK: true}, "properties ok"},
		{"ok with warnings", ValidationResult{OK: true, Warnings: []string{"a", "b"}}, "properties ok (warnings: 2)"},
		{"invalid", ValidationResult{OK: false, Errors: []string{"boom"}}, "properties invalid: boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatValidationText(tc.res); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatValidationJSON(t *testing.T) {
	out, err := FormatValidationJSON(ValidationResult{OK: true})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(out, `"ok": true`) {
		t.Fatalf("output: %s", out)
	}
	if strings.Contains(out, "warnings") {
		t.Fatalf("empty warnings serialized: %s", out)
	}
}
