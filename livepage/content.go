package livepage

import (
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// contentRenderer turns a message element's HTML into markdown so that
// headings, lists and code blocks survive into the transcript. The raw
// HTML is sanitized first; share pages embed third-party markup.
type contentRenderer struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
	logger *slog.Logger
}

func newContentRenderer(logger *slog.Logger) *contentRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &contentRenderer{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

// render converts element HTML to markdown, falling back to the plain
// rendered text when the markup is empty or conversion fails.
func (r *contentRenderer) render(elHTML, pageURL, fallback string) string {
	if strings.TrimSpace(elHTML) == "" {
		return fallback
	}
	clean := r.policy.Sanitize(elHTML)
	md, err := r.conv.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(md) == "" {
		r.logger.Debug("livepage: markdown conversion fell back to text", "error", err)
		return fallback
	}
	return md
}
