package atutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveLeadingWhitespace(t *testing.T) {
	patterns := []struct {
		name string
		in   string
		out  string
	}{
		{"none", "abc", "abc"},
		{"spaces", "   abc", "abc"},
		{"mixed", "\t\r\n abc", "abc"},
		{"all whitespace", "\t\r\n ", ""},
		{"empty", "", ""},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			assert.Equal(t, p.out, RemoveLeadingWhitespace(p.in))
		})
	}
}

func TestRemoveTrailingWhitespace(t *testing.T) {
	assert.Equal(t, "abc", RemoveTrailingWhitespace("abc\t\r\n "))
	assert.Equal(t, "abc", RemoveTrailingWhitespace("abc"))
	assert.Equal(t, "", RemoveTrailingWhitespace(""))
}

func TestRemoveAllWhitespace(t *testing.T) {
	assert.Equal(t, "abc", RemoveAllWhitespace(" a\tb\rc\n"))
	// idempotence (spec.md §8 round-trip property)
	once := RemoveAllWhitespace(" a\tb\rc\n")
	twice := RemoveAllWhitespace(once)
	assert.Equal(t, once, twice)
}

func TestRemoveOutermostDoubleQuote(t *testing.T) {
	patterns := []struct {
		name    string
		in      string
		out     string
		wantErr bool
	}{
		{"paired", `"1A2B"`, "1A2B", false},
		{"unquoted", "1A2B", "1A2B", false},
		{"unpaired leading", `"1A2B`, `"1A2B`, true},
		{"unpaired trailing", `1A2B"`, `1A2B"`, true},
		{"empty", "", "", false},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			got, err := RemoveOutermostDoubleQuote(p.in)
			if p.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, p.out, got)
		})
	}
}

func TestRemoveAllDoubleQuotes(t *testing.T) {
	assert.Equal(t, "1A2B", RemoveAllDoubleQuotes(`"1A""2B"`))
}

func TestIsPrefixPresent(t *testing.T) {
	patterns := []struct {
		name string
		in   string
		want bool
	}{
		{"prefixed", "+CREG: 1,1", true},
		{"prefixed with leading space", "  +CREG: 1,1", true},
		{"no plus before colon", "OK", false},
		{"colon before plus", "A:+B", false},
		{"starts with digit", "1+CREG", false},
		{"empty", "", false},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			assert.Equal(t, p.want, IsPrefixPresent(p.in))
		})
	}
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("+CREG: 1", "+CREG"))
	assert.False(t, HasPrefix("+creg: 1", "+CREG"))
	assert.False(t, HasPrefix("+C", "+CREG"))
}

func TestTokenizerNext(t *testing.T) {
	tk := NewTokenizer("1,\"1A2B\",01AB0123,7")
	var got []string
	for {
		tok, ok := tk.Next()
		if !ok {
			break
		}
		got = append(got, tok)
	}
	assert.Equal(t, []string{"1", `"1A2B"`, "01AB0123", "7"}, got)
}

func TestTokenizerExhaustiveRoundTrip(t *testing.T) {
	// spec.md §8: get_next_token applied exhaustively to a comma-joined
	// vector yields the original vector (modulo empty fields).
	fields := []string{"a", "bb", "ccc", "d"}
	joined := fields[0] + "," + fields[1] + "," + fields[2] + "," + fields[3]
	tk := NewTokenizer(joined)
	var got []string
	for {
		tok, ok := tk.Next()
		if !ok {
			break
		}
		got = append(got, tok)
	}
	assert.Equal(t, fields, got)
}

func TestTokenizerNextSepReusable(t *testing.T) {
	tk := NewTokenizer("23/05/17")
	first, ok := tk.NextSep('/')
	assert.True(t, ok)
	assert.Equal(t, "23", first)
	second, ok := tk.NextSep('/')
	assert.True(t, ok)
	assert.Equal(t, "05", second)
	assert.Equal(t, "17", tk.Remainder())
}

func TestStrtoi(t *testing.T) {
	patterns := []struct {
		name    string
		in      string
		radix   int
		want    int32
		wantErr bool
	}{
		{"decimal", "123", 10, 123, false},
		{"hex", "1A2B", 16, 0x1A2B, false},
		{"binary", "00001111", 2, 15, false},
		{"bad radix", "10", 8, 0, true},
		{"non digit", "12x", 10, 0, true},
		{"empty", "", 10, 0, true},
	}
	for _, p := range patterns {
		t.Run(p.name, func(t *testing.T) {
			got, err := Strtoi(p.in, p.radix)
			if p.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, p.want, got)
		})
	}
}
