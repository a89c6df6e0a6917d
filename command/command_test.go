package command

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  Command
	}{
		{
			name:  "plain command",
			title: "telegram alice hello there",
			want:  Command{Keyword: "telegram", Argument: "alice", Body: "hello there"},
		},
		{
			name:  "keyword case and punctuation normalized",
			title: "Telegram! Bob hi",
			want:  Command{Keyword: "telegram", Argument: "Bob", Body: "hi"},
		},
		{
			name:  "argument kept verbatim",
			title: "telegram Alice. check the list",
			want:  Command{Keyword: "telegram", Argument: "Alice.", Body: "check the list"},
		},
		{
			name:  "body rejoined with single spaces",
			title: "telegram alice   what's   up",
			want:  Command{Keyword: "telegram", Argument: "alice", Body: "what's up"},
		},
		{
			name:  "unrecognized keyword still parses",
			title: "note buy milk",
			want:  Command{Keyword: "note", Argument: "buy", Body: "milk"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.title)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.title, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.title, got, tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, title := range []string{"", "hi", "telegram alice", "   ", "\t\n"} {
		_, err := Parse(title)
		var malformed *ErrMalformed
		if !errors.As(err, &malformed) {
			t.Fatalf("Parse(%q): err = %v, want ErrMalformed", title, err)
		}
	}
}

func TestRoutable(t *testing.T) {
	tests := []struct {
		keyword string
		want    bool
	}{
		{"telegram", true},
		{"note", true},
		{"telegram2", false}, // digits never match
		{"tele-gram", false},
		{"", false},
	}
	for _, tt := range tests {
		c := Command{Keyword: tt.keyword}
		if got := c.Routable(); got != tt.want {
			t.Errorf("Routable(%q) = %v, want %v", tt.keyword, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Telegram", "telegram"},
		{"telegram.", "telegram"},
		{"TELEGRAM!?", "telegram"},
		{`"note"`, "note"},
		{"a.b", "a.b"}, // only surrounding punctuation is stripped
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add("telegram alice hello there")
	f.Add("Telegram Bob hi")
	f.Add("hi")
	f.Add("  spaced   out   title  ")

	f.Fuzz(func(t *testing.T, title string) {
		cmd, err := Parse(title)
		tokens := strings.Fields(title)

		if len(tokens) < 3 {
			var malformed *ErrMalformed
			if !errors.As(err, &malformed) {
				t.Fatalf("Parse(%q): err = %v, want ErrMalformed for %d tokens", title, err, len(tokens))
			}
			return
		}

		if err != nil {
			t.Fatalf("Parse(%q): unexpected error %v", title, err)
		}
		if cmd.Keyword != Normalize(tokens[0]) {
			t.Errorf("keyword = %q, want %q", cmd.Keyword, Normalize(tokens[0]))
		}
		if cmd.Argument != tokens[1] {
			t.Errorf("argument = %q, want %q", cmd.Argument, tokens[1])
		}
		if cmd.Body != strings.Join(tokens[2:], " ") {
			t.Errorf("body = %q, want %q", cmd.Body, strings.Join(tokens[2:], " "))
		}
	})
}
