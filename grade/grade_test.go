package grade

import "testing"

func TestForPBS(t *testing.T) {
	tests := []struct {
		in   Token
		want string
	}{
		{"all", ""},
		{"", ""},
		{"K", "PreK-K"},
		{"1", "K-2"},
		{"2", "K-2"},
		{"3", "3-5"},
		{"5", "3-5"},
		{"6", "6-8"},
		{"8", "6-8"},
		{"9", "9-12"},
		{"12", "9-12"},
		{"13", ""},
		{"0", ""},
		{"-4", ""},
		{"seven", ""},
	}
	for _, tt := range tests {
		if got := ForPBS(tt.in); got != tt.want {
			t.Errorf("ForPBS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestForCK12(t *testing.T) {
	tests := []struct {
		in   Token
		want string
	}{
		{"all", ""},
		{"K", ""},
		{"1", "1"},
		{"7", "7"},
		{"10", "10"},
		{"11", ""},
		{"12", ""},
		{"13", ""},
		{"0", ""},
		{"x", ""},
	}
	for _, tt := range tests {
		if got := ForCK12(tt.in); got != tt.want {
			t.Errorf("ForCK12(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestForKhan_PassesThrough(t *testing.T) {
	for _, tok := range Tokens {
		if got := ForKhan(tok); got != string(tok) {
			t.Errorf("ForKhan(%q) = %q", tok, got)
		}
	}
}

func TestOutboundMappingsAreTotal(t *testing.T) {
	inputs := append([]Token{}, Tokens...)
	inputs = append(inputs, "", "13", "100", "k", "Grade 3", "3.5", "\x00")
	for _, in := range inputs {
		// Must not panic for any input.
		_ = ForPBS(in)
		_ = ForCK12(in)
		_ = ForKhan(in)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string // "" means nil
	}{
		{"multiple grades", "Grades 3 & 4", "3"},
		{"band", "K-2", "2"},
		{"prefixed", "Grade: 7", "7"},
		{"two digits", "Grades 10, 11, 12", "10"},
		{"no digits", "Kindergarten", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.label)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("Extract(%q) = %q, want nil", tt.label, *got)
			case tt.want != "" && got == nil:
				t.Errorf("Extract(%q) = nil, want %q", tt.label, tt.want)
			case tt.want != "" && *got != tt.want:
				t.Errorf("Extract(%q) = %q, want %q", tt.label, *got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if tok, ok := Parse(""); !ok || tok != All {
		t.Errorf("Parse(\"\") = %q, %v", tok, ok)
	}
	if _, ok := Parse("K"); !ok {
		t.Error("K should be valid")
	}
	if _, ok := Parse("13"); ok {
		t.Error("13 should be invalid")
	}
	if _, ok := Parse("k"); ok {
		t.Error("lowercase k should be invalid")
	}
}
