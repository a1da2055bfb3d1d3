package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

// SupportedExtensions lists the file formats the loader accepts.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// LoadFile reads a document from disk and splits it into loader blocks.
// The doc id defaults to the filename without extension.
func LoadFile(path string) ([]chunker.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return LoadBytes(path, data)
}

// LoadBytes splits raw document content into blocks by format. Plain text and
// markdown produce one block per paragraph; HTML produces a single block of
// body text with one text node per line. Unsupported extensions fail with
// domain.ErrUnsupportedFormat.
func LoadBytes(path string, data []byte) ([]chunker.Block, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}

	docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	meta := domain.ChunkMeta{
		DocID:      docID,
		SourcePath: path,
		Filename:   filepath.Base(path),
	}

	if ext == ".html" || ext == ".htm" {
		return loadHTML(data, meta)
	}
	return loadText(data, meta), nil
}

// loadText splits plain text or markdown into paragraph blocks separated by
// blank lines. Paragraph ordinals are 1-based over the raw paragraphs, so
// skipped empty paragraphs keep ordinals stable.
func loadText(data []byte, meta domain.ChunkMeta) []chunker.Block {
	paragraphs := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n\n")

	var blocks []chunker.Block
	for i, p := range paragraphs {
		text := Clean(p)
		if text == "" {
			continue
		}
		m := meta
		m.PageOrPara = i + 1
		blocks = append(blocks, chunker.Block{Text: text, Meta: m})
	}

	if len(blocks) == 0 {
		if full := Clean(string(data)); full != "" {
			m := meta
			m.PageOrPara = 1
			blocks = append(blocks, chunker.Block{Text: full, Meta: m})
		}
	}
	return blocks
}

// loadHTML extracts visible text from the document body, one text node per
// line, with script and style content dropped.
func loadHTML(data []byte, meta domain.ChunkMeta) ([]chunker.Block, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", meta.Filename, err)
	}

	root := doc.Selection
	if body := doc.Find("body"); body.Length() > 0 {
		root = body
	}

	var lines []string
	for _, node := range root.Nodes {
		collectTextLines(node, &lines)
	}

	text := Clean(strings.Join(lines, "\n"))
	if text == "" {
		return nil, nil
	}

	m := meta
	m.PageOrPara = 1
	return []chunker.Block{{Text: text, Meta: m}}, nil
}

func collectTextLines(n *html.Node, out *[]string) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*out = append(*out, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectTextLines(c, out)
	}
}
