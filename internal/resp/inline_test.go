package resp

import (
	"bytes"
	"errors"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
		err  bool
	}{
		{name: "empty", line: "", want: nil},
		{name: "only_spaces", line: "   \t ", want: nil},
		{name: "plain", line: "SET key value", want: []string{"SET", "key", "value"}},
		{name: "double_quoted", line: `SET k "a b"`, want: []string{"SET", "k", "a b"}},
		{name: "single_quoted", line: `SET k 'a b'`, want: []string{"SET", "k", "a b"}},
		{name: "escapes", line: `"\n\r\t\b\a\\\""`, want: []string{"\n\r\t\b\a\\\""}},
		{name: "hex", line: `"\x00\xff\x41"`, want: []string{"\x00\xffA"}},
		{name: "single_escape", line: `'it\'s'`, want: []string{"it's"}},
		{name: "single_no_other_escapes", line: `'a\nb'`, want: []string{`a\nb`}},
		{name: "empty_quoted", line: `ECHO ""`, want: []string{"ECHO", ""}},
		{name: "quote_inside_token", line: `foo"bar baz"`, want: []string{"foobar baz"}},
		{name: "unterminated_double", line: `"abc`, err: true},
		{name: "unterminated_single", line: `'abc`, err: true},
		{name: "closing_quote_followed", line: `"abc"d`, err: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SplitArgs([]byte(tc.line))
			if tc.err {
				if !errors.Is(err, ErrUnbalancedQuotes) {
					t.Fatalf("expected ErrUnbalancedQuotes, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d args %q, want %d %q", len(got), got, len(tc.want), tc.want)
			}
			for i := range got {
				if string(got[i]) != tc.want[i] {
					t.Errorf("arg %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

// 加引号编码后再切分，必须得到原来的参数
func TestQuoteRoundTrip(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	cases := [][][]byte{
		{[]byte("SET"), []byte("key"), []byte("value")},
		{[]byte("with space"), []byte("tab\there"), []byte("new\nline")},
		{[]byte(`quote"inside`), []byte(`back\slash`), []byte("'single'")},
		{[]byte(""), []byte("x"), []byte("")},
		{all},
		{[]byte("\x00\x01\x7f\x80\xfe\xff")},
	}

	for i, args := range cases {
		line := JoinArgs(args)
		got, err := SplitArgs(line)
		if err != nil {
			t.Fatalf("case %d: %v (line %q)", i, err, line)
		}
		if len(got) != len(args) {
			t.Fatalf("case %d: got %d args, want %d", i, len(got), len(args))
		}
		for j := range args {
			if !bytes.Equal(got[j], args[j]) {
				t.Errorf("case %d arg %d: got %q, want %q", i, j, got[j], args[j])
			}
		}
	}
}

func TestAppendQuoted(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", `"abc"`},
		{"a\"b", `"a\"b"`},
		{"\n", `"\n"`},
		{"\x01", `"\x01"`},
		{"\xff", `"\xff"`},
	}
	for _, tc := range tests {
		if got := string(AppendQuoted(nil, []byte(tc.in))); got != tc.want {
			t.Errorf("AppendQuoted(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
