package payload

import (
	"errors"
	"strings"
	"testing"
)

func snapshotWith(script string) string {
	return `<!DOCTYPE html><html><head><script>var x=1;</script></head><body>` +
		`<div>chat</div><script>` + script + `</script></body></html>`
}

func TestLocate_ScriptElement(t *testing.T) {
	snap := snapshotWith(`streamController.enqueue("hello payload");`)
	got, err := Locate(snap)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != "hello payload" {
		t.Errorf("got %q", got)
	}
}

func TestLocate_PrefersLargestScript(t *testing.T) {
	// Both scripts carry enqueue calls; the larger one holds the real
	// payload.
	big := `var pad="` + strings.Repeat("x", 500) + `";streamController.enqueue("real");`
	snap := `<html><body><script>streamController.enqueue("decoy");</script>` +
		`<script>` + big + `</script></body></html>`
	got, err := Locate(snap)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != "real" {
		t.Errorf("got %q, want real", got)
	}
}

func TestLocate_FallbackWithoutMarkup(t *testing.T) {
	// Raw text with no script tags still works via the whole-text scan.
	raw := `junk streamController.enqueue("fallback"); more junk`
	got, err := Locate(raw)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != "fallback" {
		t.Errorf("got %q", got)
	}
}

func TestLocate_NoMarker(t *testing.T) {
	for _, snap := range []string{"", "   ", "<html><body>nothing</body></html>"} {
		if _, err := Locate(snap); !errors.Is(err, ErrNoMarker) {
			t.Errorf("Locate(%q): err = %v, want ErrNoMarker", snap, err)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"quotes", `say \"hi\"`, `say "hi"`},
		{"newline_tab", `a\nb\tc`, "a\nb\tc"},
		{"slash", `https:\/\/example.com\/x`, "https://example.com/x"},
		{"double_backslash", `C:\\temp`, `C:\temp`},
		{"plain", "untouched", "untouched"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.in); got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode_BackslashBeforeQuote(t *testing.T) {
	// `\\\"` is an escaped backslash followed by an escaped quote. Naive
	// quote-first unescaping would eat the backslash.
	if got := Decode(`path \\\" end`); got != `path \" end` {
		t.Errorf("got %q, want %q", got, `path \" end`)
	}
}

func TestDecode_EscapedNewlineLiteral(t *testing.T) {
	// `\\n` must decode to a literal backslash-n, not a newline.
	if got := Decode(`literal \\n here`); got != `literal \n here` {
		t.Errorf("got %q", got)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	// Escape the way the embedding JS does, then Decode: the original must
	// come back exactly, whatever mix of backslashes, tabs and quotes it
	// carried.
	escape := func(s string) string {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		s = strings.ReplaceAll(s, "\n", `\n`)
		s = strings.ReplaceAll(s, "\t", `\t`)
		return s
	}
	for _, orig := range []string{
		`C:\temp\new`,
		"tab\there",
		`say "hi" and C:\note`,
		`literal \n stays two chars`,
	} {
		if got := Decode(escape(orig)); got != orig {
			t.Errorf("Decode(escape(%q)) = %q", orig, got)
		}
	}
}

func TestExtract(t *testing.T) {
	snap := snapshotWith(`streamController.enqueue("line one\nline \"two\"");`)
	got, err := Extract(snap)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "line one\nline \"two\""
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseMetadata(t *testing.T) {
	decoded := `{"title":"Planning a trip","create_time":1718000100.25,"update_time":1718000500}`
	md := ParseMetadata(decoded)
	if md.Title != "Planning a trip" {
		t.Errorf("title: got %q", md.Title)
	}
	if md.CreateTime != 1718000100.25 {
		t.Errorf("create_time: got %v", md.CreateTime)
	}
	if md.UpdateTime != 1718000500 {
		t.Errorf("update_time: got %v", md.UpdateTime)
	}
}

func TestParseMetadata_Missing(t *testing.T) {
	md := ParseMetadata("no metadata here")
	if md.Title != "" || md.CreateTime != 0 || md.UpdateTime != 0 {
		t.Errorf("expected zero metadata, got %+v", md)
	}
}
