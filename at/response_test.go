package at_test

import (
	"slices"
	"strings"
	"testing"

	"i4.energy/across/atrunner/at"
)

func TestParseLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Network registration check",
			input:    "AT+CREG?\r\r\n+CREG: 0,1\r\n\r\nOK\r\n",
			expected: []string{"AT+CREG?", "+CREG: 0,1", "", "OK"},
		},
		{
			name:     "Echo off response",
			input:    "\r\nOK\r\n",
			expected: []string{"OK"},
		},
		{
			name:     "Multi line identification",
			input:    "ATI\r\r\nSIM7080 R1951.05\r\n\r\nOK\r\n",
			expected: []string{"ATI", "SIM7080 R1951.05", "", "OK"},
		},
		{
			name:     "Inner whitespace is preserved",
			input:    "\r\n  +CSQ: 15,99  \r\nOK",
			expected: []string{"+CSQ: 15,99  ", "OK"},
		},
		{
			name:     "Bare carriage returns are removed",
			input:    "AT\rOK\r",
			expected: []string{"ATOK"},
		},
		{
			name:     "Empty response",
			input:    "",
			expected: []string{""},
		},
		{
			name:     "Whitespace only response",
			input:    "\r\n\r\n \t",
			expected: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := at.ParseLines(tt.input)
			if !slices.Equal(lines, tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, lines)
			}
		})
	}
}

func TestParseLinesRoundTrip(t *testing.T) {
	inputs := []string{
		"AT+CGDCONT?\r\n+CGDCONT: 1,\"IP\",\"iot.static\",\"0.0.0.0\",0,0,0,0\r\n\r\nOK\r\n",
		"\n\n a \n\n b \n\n",
		"+CME ERROR: 3",
		"\r\r\r",
		"line\r\nwith\ttab\r\n\r\n\r\nand gaps",
	}

	for _, input := range inputs {
		want := strings.TrimSpace(strings.ReplaceAll(input, "\r", ""))
		got := strings.Join(at.ParseLines(input), "\n")
		if got != want {
			t.Errorf("round trip of %q: expected %q, got %q", input, want, got)
		}
	}
}

func TestDecode(t *testing.T) {
	if got := at.Decode([]byte("AT\r\nOK\r\n")); got != "AT\r\nOK\r\n" {
		t.Errorf("ASCII should decode unchanged, got %q", got)
	}

	got := at.Decode([]byte{'O', 'K', 0xff, 0x80})
	if !strings.HasPrefix(got, "OK") {
		t.Errorf("expected decoded text to keep ASCII prefix, got %q", got)
	}
	if n := len([]rune(got)); n != 4 {
		t.Errorf("expected one rune per byte, got %d runes in %q", n, got)
	}

	if got := at.Decode(nil); got != "" {
		t.Errorf("expected empty string for nil input, got %q", got)
	}
}

func TestContains(t *testing.T) {
	lines := []string{"AT+CREG?", "+CREG: 0,1", "OK"}

	tests := []struct {
		needle    string
		substring bool
		exact     bool
	}{
		{needle: "+CREG: 0,1", substring: true, exact: true},
		{needle: "CREG", substring: true, exact: false},
		{needle: "OK", substring: true, exact: true},
		{needle: "+CREG: 0,5", substring: false, exact: false},
		{needle: "ok", substring: false, exact: false},
	}

	for _, tt := range tests {
		if got := at.Contains(lines, tt.needle); got != tt.substring {
			t.Errorf("Contains(%q): expected %v, got %v", tt.needle, tt.substring, got)
		}
		if got := at.ContainsLine(lines, tt.needle); got != tt.exact {
			t.Errorf("ContainsLine(%q): expected %v, got %v", tt.needle, tt.exact, got)
		}
	}
}

func TestMatchPolicy(t *testing.T) {
	// "OK" inside "+CSTT: OK" is found only by the looser policy
	lines := []string{"AT+CSTT?", "+CSTT: OK"}

	if at.MatchExact.Match(lines, at.OK) {
		t.Error("MatchExact should not match OK inside a longer line")
	}
	if !at.MatchSubstring.Match(lines, at.OK) {
		t.Error("MatchSubstring should match OK inside a longer line")
	}

	var zero at.MatchPolicy
	if zero != at.MatchExact {
		t.Error("zero value should be MatchExact")
	}

	for _, p := range []at.MatchPolicy{at.MatchExact, at.MatchSubstring} {
		parsed, ok := at.ParseMatchPolicy(p.String())
		if !ok || parsed != p {
			t.Errorf("ParseMatchPolicy(%q) = %v, %v", p.String(), parsed, ok)
		}
	}

	if _, ok := at.ParseMatchPolicy("regex"); ok {
		t.Error("expected unknown policy to be rejected")
	}
	if p, ok := at.ParseMatchPolicy(""); !ok || p != at.MatchExact {
		t.Error("expected empty policy to default to exact")
	}
}
