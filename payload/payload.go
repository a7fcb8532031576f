// Package payload locates the serialized conversation blob embedded in a
// static share-page snapshot and reverses its layered character escaping.
//
// Share pages carry the conversation as a long quoted string handed to a
// streaming-enqueue call inside a script element. The string is escaped one
// extra level relative to the page's own markup; Decode reverses exactly
// that level, in an order that keeps legitimate backslashes intact.
package payload

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoMarker is returned when no recognizable payload marker exists in the
// snapshot.
var ErrNoMarker = errors.New("payload: no embedded conversation payload found")

// enqueueRe matches the streaming-enqueue call wrapping the payload string.
var enqueueRe = regexp.MustCompile(`(?s)streamController\.enqueue\("(.*?)"\);`)

// backslash sentinel: NUL never occurs in page text.
const bsSentinel = "\x00"

// Locate finds the raw (still escaped) payload string in a snapshot.
// It prefers walking the snapshot's script elements, largest first, since
// the payload always lives in the biggest script; if the snapshot is not
// parseable HTML it falls back to scanning the whole text.
func Locate(snapshot string) (string, error) {
	if strings.TrimSpace(snapshot) == "" {
		return "", ErrNoMarker
	}

	for _, script := range scriptBodies(snapshot) {
		if m := enqueueRe.FindStringSubmatch(script); m != nil {
			return m[1], nil
		}
	}
	if m := enqueueRe.FindStringSubmatch(snapshot); m != nil {
		return m[1], nil
	}
	return "", ErrNoMarker
}

// Decode reverses the payload's escaping. The order is load-bearing:
//
//  1. park doubled backslashes behind a sentinel
//  2. unescape quotation marks
//  3. unescape newline/tab/carriage-return/slash sequences
//  4. restore the sentinel to a single backslash
//
// Running step 2 before step 1 would corrupt any backslash that precedes a
// quote; restoring the sentinel before step 3 would re-interpret restored
// backslashes, turning `\\n` into a newline instead of backslash-n.
func Decode(raw string) string {
	s := strings.ReplaceAll(raw, `\\`, bsSentinel)
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\r`, "\r")
	s = strings.ReplaceAll(s, `\/`, "/")
	return strings.ReplaceAll(s, bsSentinel, `\`)
}

// Extract locates and decodes the payload in one step.
func Extract(snapshot string) (string, error) {
	raw, err := Locate(snapshot)
	if err != nil {
		return "", err
	}
	return Decode(raw), nil
}

// scriptBodies returns the text content of every script element in the
// snapshot, largest first. A snapshot that fails to parse yields none.
func scriptBodies(snapshot string) []string {
	doc, err := html.Parse(strings.NewReader(snapshot))
	if err != nil {
		return nil
	}
	var bodies []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			if sb.Len() > 0 {
				bodies = append(bodies, sb.String())
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	sort.SliceStable(bodies, func(i, j int) bool { return len(bodies[i]) > len(bodies[j]) })
	return bodies
}
