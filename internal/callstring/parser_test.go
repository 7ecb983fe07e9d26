package callstring

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRoundTrip(t *testing.T) {
	call, err := Parse("do?1.5&1.5&a&b=&c=2")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if call.Name != "do" {
		t.Errorf("Name = %q, want %q", call.Name, "do")
	}

	wantList := []Param{Bare("1.5"), Bare("1.5"), Bare("a"), Assign("b", ""), Assign("c", "2")}
	if diff := cmp.Diff(wantList, call.Params.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	wantIndex := map[string]string{"1.5": "", "a": "", "b": "", "c": "2"}
	if diff := cmp.Diff(wantIndex, call.Params.Index()); diff != "" {
		t.Errorf("Index() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseValid(t *testing.T) {
	tests := []struct {
		input     string
		wantName  string
		wantList  []Param
		wantIndex map[string]string
	}{
		{
			input:     "dt",
			wantName:  "dt",
			wantList:  []Param{},
			wantIndex: map[string]string{},
		},
		{
			input:     "DateTime_2",
			wantName:  "datetime_2",
			wantList:  []Param{},
			wantIndex: map[string]string{},
		},
		{
			input:     "dt?long",
			wantName:  "dt",
			wantList:  []Param{Bare("long")},
			wantIndex: map[string]string{"long": ""},
		},
		{
			input:     "x?-1&.5&_",
			wantName:  "x",
			wantList:  []Param{Bare("-1"), Bare(".5"), Bare("_")},
			wantIndex: map[string]string{"-1": "", ".5": "", "_": ""},
		},
		{
			input:     "x?d=4&d=5&Key=v-1.0",
			wantName:  "x",
			wantList:  []Param{Assign("d", "4"), Assign("d", "5"), Assign("Key", "v-1.0")},
			wantIndex: map[string]string{"d": "5", "Key": "v-1.0"},
		},
		{
			input:     "x?a=1&a",
			wantName:  "x",
			wantList:  []Param{Assign("a", "1"), Bare("a")},
			wantIndex: map[string]string{"a": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			call, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if call.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", call.Name, tt.wantName)
			}
			if diff := cmp.Diff(tt.wantList, call.Params.List()); diff != "" {
				t.Errorf("List() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantIndex, call.Params.Index()); diff != "" {
				t.Errorf("Index() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	inputs := []string{
		"",
		"1do?x",
		"_do",
		"do?=v",
		"do?a&&b",
		"do?a&",
		"do?",
		"do?a=b=c",
		"do?1a=b",
		"do x",
		"do!",
		"do?a b",
		"do?a=%",
		"dö",
		"do?a&b=c&",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			call, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", input, call)
			}
			if !errors.Is(err, ErrGrammar) {
				t.Errorf("Parse(%q) error = %v, want ErrGrammar", input, err)
			}
			var ge *GrammarError
			if !errors.As(err, &ge) {
				t.Fatalf("Parse(%q) error type = %T, want *GrammarError", input, err)
			}
			if ge.Input != input {
				t.Errorf("GrammarError.Input = %q, want %q", ge.Input, input)
			}
			if call.Name != "" || call.Params.Len() != 0 {
				t.Errorf("Parse(%q) returned partial call %v", input, call)
			}
		})
	}
}

func TestParseIndexIsLastWriteWins(t *testing.T) {
	inputs := []string{
		"a?x&x=1&x=&y=2&x",
		"a?p=1&q=2&p=3",
		"a?1&2&1&b=&c=3&d=4&d=5",
	}

	for _, input := range inputs {
		call, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		want := make(map[string]string)
		for _, p := range call.Params.List() {
			want[p.Key()] = p.IndexValue()
		}
		if diff := cmp.Diff(want, call.Params.Index()); diff != "" {
			t.Errorf("Parse(%q) index mismatch (-want +got):\n%s", input, diff)
		}
	}
}

func TestCallString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DT", "dt"},
		{"dt?long", "dt?long"},
		{"Do?1.5&b=&c=2", "do?1.5&b=&c=2"},
	}

	for _, tt := range tests {
		call, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.input, err)
		}
		if got := call.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"dt", true},
		{"a1_b", true},
		{"", false},
		{"1a", false},
		{"a-b", false},
		{"a.b", false},
	}

	for _, tt := range tests {
		if got := ValidName(tt.name); got != tt.want {
			t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
