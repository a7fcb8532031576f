package payload

import (
	"regexp"
	"strconv"
)

// Metadata is the conversation-level information carried by the payload.
type Metadata struct {
	Title      string
	CreateTime float64
	UpdateTime float64
}

var (
	titleRe  = regexp.MustCompile(`"title":"([^"]+)"`)
	createRe = regexp.MustCompile(`"create_time":(\d+\.?\d*)`)
	updateRe = regexp.MustCompile(`"update_time":(\d+\.?\d*)`)
)

// ParseMetadata pulls title and timestamps out of a decoded payload.
// Missing fields stay zero.
func ParseMetadata(decoded string) Metadata {
	var md Metadata
	if m := titleRe.FindStringSubmatch(decoded); m != nil {
		md.Title = m[1]
	}
	if m := createRe.FindStringSubmatch(decoded); m != nil {
		md.CreateTime, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := updateRe.FindStringSubmatch(decoded); m != nil {
		md.UpdateTime, _ = strconv.ParseFloat(m[1], 64)
	}
	return md
}
