package email

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// md renders CommonMark. Raw HTML in the source is escaped, not passed through.
var md = goldmark.New()

// RenderMarkdown converts a user-written markdown body to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
