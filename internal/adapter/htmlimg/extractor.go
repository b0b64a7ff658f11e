// Package htmlimg extracts embedded images from tracker rich-text HTML and
// replaces them with placeholder tokens the LLM prompt can reference.
package htmlimg

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/testgenius/backend/internal/domain/testgen"
)

// ExtractImagesAndText parses the HTML, decodes every data-URI image, and
// returns the decoded images plus the text content with each image replaced
// by a placeholder: "[Image {n}: {alt}]" for decoded images (n is a 1-based
// running index over the field), "[Image: {alt} - external URL]" for sources
// that cannot be inlined, and "[Image: {alt} - failed to load]" for sources
// that fail to decode. Text fragments are joined by newlines so numbered
// steps authored as separate paragraphs keep their line structure.
func ExtractImagesAndText(htmlContent string) ([]testgen.Image, string) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, ""
	}

	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// Treat unparseable markup as plain text.
		return nil, strings.TrimSpace(htmlContent)
	}

	var images []testgen.Image
	var fragments []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			alt := attr(n, "alt")
			if alt == "" {
				alt = "image"
			}
			src := attr(n, "src")

			switch {
			case strings.HasPrefix(src, "data:image"):
				img, err := decodeDataURI(src)
				if err != nil {
					fragments = append(fragments, fmt.Sprintf("[Image: %s - failed to load]", alt))
					return
				}
				images = append(images, img)
				fragments = append(fragments, fmt.Sprintf("[Image %d: %s]", len(images), alt))
			default:
				fragments = append(fragments, fmt.Sprintf("[Image: %s - external URL]", alt))
			}
			return
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				fragments = append(fragments, text)
			}
			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return images, strings.Join(fragments, "\n")
}

// ExtractText returns only the text content, images replaced by a bare
// "[Image: {alt}]" placeholder, fragments joined by newlines.
func ExtractText(htmlContent string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return strings.TrimSpace(htmlContent)
	}

	var fragments []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			alt := attr(n, "alt")
			if alt == "" {
				alt = "image"
			}
			fragments = append(fragments, fmt.Sprintf("[Image: %s]", alt))
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				fragments = append(fragments, text)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return strings.Join(fragments, "\n")
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// decodeDataURI decodes a "data:image/<fmt>;base64,<data>" source into raw
// bytes and its MIME type.
func decodeDataURI(src string) (testgen.Image, error) {
	header, data, ok := strings.Cut(src, ",")
	if !ok {
		return testgen.Image{}, fmt.Errorf("malformed data URI")
	}

	mime := strings.TrimPrefix(header, "data:")
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return testgen.Image{}, fmt.Errorf("decode base64 image: %w", err)
	}
	return testgen.Image{Data: decoded, MIME: mime}, nil
}
