package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/chatgrab/transcript"
)

// decodedPayload is the conversation as it looks after payload decoding:
// wrappers with the numeric role field referencing content blocks.
const decodedPayload = `{"title":"Trip planning","create_time":1718000100.5,"update_time":1718000400.5}` +
	`,1718000100.5,{"_2210":18,"_2218":"a"},[1523],"Can you help me plan a week in Lyon with two kids?"` +
	`,1718000200.5,{"_2210":2280,"_2218":"m"},[1544],"Here is a week-long Lyon plan balancing museums, parks and food markets for the kids."`

// snapshotFor embeds a payload in a share-page snapshot, escaped one level
// the way the page serializes it.
func snapshotFor(decoded string) string {
	escaped := strings.ReplaceAll(decoded, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `<html><head><title>share</title></head><body><div id="root"></div>` +
		`<script>streamController.enqueue("` + escaped + `");</script></body></html>`
}

func TestExtract_SnapshotStructural(t *testing.T) {
	e := New(Config{}, nil)
	res, err := e.Extract(context.Background(), Snapshot(snapshotFor(decodedPayload)))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Strategy != "structural" {
		t.Errorf("strategy: got %q", res.Strategy)
	}
	if res.Transcript.Title != "Trip planning" {
		t.Errorf("title: got %q", res.Transcript.Title)
	}
	if res.Transcript.CreateTime != 1718000100.5 {
		t.Errorf("create_time: got %v", res.Transcript.CreateTime)
	}
	msgs := res.Transcript.Messages
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != transcript.RoleUser || msgs[1].Role != transcript.RoleAssistant {
		t.Errorf("roles: %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[0].Content, "Lyon") {
		t.Errorf("content: %q", msgs[0].Content)
	}
}

func TestExtract_SnapshotHeuristicFallback(t *testing.T) {
	// Payload with quoted text but none of the wrapper structure: the
	// structural strategy misses and the heuristic takes over.
	decoded := `preamble "Can you compare the high speed rail options between Paris and Marseille for a family of four traveling in late spring please?" middle ` +
		`"Here is a comparison of the rail options. However, prices vary by season, so treat these numbers as an estimate for planning purposes only." end`
	e := New(Config{}, nil)
	res, err := e.Extract(context.Background(), Snapshot(snapshotFor(decoded)))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Strategy != "heuristic" {
		t.Errorf("strategy: got %q", res.Strategy)
	}
	if len(res.Transcript.Messages) != 2 {
		t.Fatalf("got %d messages", len(res.Transcript.Messages))
	}
}

func TestExtract_EmptySnapshot(t *testing.T) {
	e := New(Config{}, nil)
	_, err := e.Extract(context.Background(), Snapshot(""))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExtract_NoMarker(t *testing.T) {
	e := New(Config{}, nil)
	_, err := e.Extract(context.Background(), Snapshot("<html><body>just a page</body></html>"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExtract_PayloadWithoutMessages(t *testing.T) {
	// A marker exists but the payload holds nothing extractable.
	snap := snapshotFor(`{"title":"empty","create_time":1,"update_time":2}`)
	e := New(Config{}, nil)
	_, err := e.Extract(context.Background(), Snapshot(snap))
	if !errors.Is(err, ErrNoMessages) {
		t.Errorf("err = %v, want ErrNoMessages", err)
	}
}

func TestExtract_LiveNotConfigured(t *testing.T) {
	e := New(Config{}, nil)
	_, err := e.Extract(context.Background(), Live("https://example.com/share/abc"))
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}

func TestExtract_UnknownKind(t *testing.T) {
	e := New(Config{}, nil)
	if _, err := e.Extract(context.Background(), Source{Kind: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown source kind")
	}
}

func TestExtract_KeepUnknown(t *testing.T) {
	// Unmapped role sentinels: dropped by default, kept when configured.
	decoded := `1718000100.5,{"_2210":7777,"_2218":"a"},[10],"Some message content long enough to survive the block length filter."`

	e := New(Config{}, nil)
	if _, err := e.Extract(context.Background(), Snapshot(snapshotFor(decoded))); !errors.Is(err, ErrNoMessages) {
		t.Errorf("default: err = %v, want ErrNoMessages", err)
	}

	e = New(Config{KeepUnknown: true}, nil)
	res, err := e.Extract(context.Background(), Snapshot(snapshotFor(decoded)))
	if err != nil {
		t.Fatalf("keep unknown: %v", err)
	}
	if len(res.Transcript.Messages) != 1 || res.Transcript.Messages[0].Role != transcript.RoleUnknown {
		t.Errorf("got %+v", res.Transcript.Messages)
	}
}
