package htmlimg

import (
	"encoding/base64"
	"strings"
	"testing"
)

// 1x1 transparent PNG.
var pngBytes = mustDecode("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func TestExtractImagesAndText_DataURI(t *testing.T) {
	html := `<div><p>Login flow</p><img src="` + pngDataURI() + `" alt="mockup"><p>continued</p></div>`

	images, text := ExtractImagesAndText(html)

	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if images[0].MIME != "image/png" {
		t.Errorf("MIME = %q", images[0].MIME)
	}
	if len(images[0].Data) != len(pngBytes) {
		t.Errorf("decoded %d bytes, want %d", len(images[0].Data), len(pngBytes))
	}
	if text != "Login flow\n[Image 1: mockup]\ncontinued" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractImagesAndText_KeepsParagraphBreaks(t *testing.T) {
	html := `<p>1. Click forgot password</p><p>2. Enter email</p><p>3. Submit</p>`
	images, text := ExtractImagesAndText(html)
	if len(images) != 0 {
		t.Fatalf("expected no images, got %d", len(images))
	}
	if text != "1. Click forgot password\n2. Enter email\n3. Submit" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractImagesAndText_ExternalURL(t *testing.T) {
	_, text := ExtractImagesAndText(`<p>See</p><img src="https://example.com/a.png" alt="diagram">`)
	if text != "See\n[Image: diagram - external URL]" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractImagesAndText_BadDataURI(t *testing.T) {
	images, text := ExtractImagesAndText(`<img src="data:image/png;base64,@@@not-base64@@@" alt="broken">`)
	if len(images) != 0 {
		t.Errorf("broken image should not be returned, got %d", len(images))
	}
	if text != "[Image: broken - failed to load]" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractImagesAndText_DefaultAlt(t *testing.T) {
	_, text := ExtractImagesAndText(`<img src="https://example.com/a.png">`)
	if !strings.Contains(text, "[Image: image - external URL]") {
		t.Errorf("text = %q", text)
	}
}

func TestExtractImagesAndText_Empty(t *testing.T) {
	images, text := ExtractImagesAndText("   ")
	if images != nil || text != "" {
		t.Errorf("blank input should yield nothing, got %v %q", images, text)
	}
}

func TestExtractText(t *testing.T) {
	html := `<div><p>First line</p><img src="x" alt="chart"><p>Second line</p></div>`
	got := ExtractText(html)
	want := "First line\n[Image: chart]\nSecond line"
	if got != want {
		t.Errorf("ExtractText = %q, want %q", got, want)
	}
}

func TestExtractText_PlainText(t *testing.T) {
	if got := ExtractText("just plain text"); got != "just plain text" {
		t.Errorf("ExtractText = %q", got)
	}
}
