// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish pushes approved articles to the blog platform and
// announces them on the social network.
package publish

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// markdownToHTML renders the article body for the blog platform, which
// accepts HTML content.
func markdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}
