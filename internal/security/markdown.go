package security

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer はMarkdownをサニタイズ済みHTMLに変換する。
type MarkdownRenderer struct {
	md        goldmark.Markdown
	sanitizer ContentSanitizerService
}

// NewMarkdownRenderer はMarkdownRendererを生成する。sanitizerがnilの場合は既定のポリシーを使う。
func NewMarkdownRenderer(sanitizer ContentSanitizerService) *MarkdownRenderer {
	if sanitizer == nil {
		sanitizer = NewContentSanitizer()
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &MarkdownRenderer{md: md, sanitizer: sanitizer}
}

// Render はMarkdownを変換・サニタイズしたHTMLを返す。
// 生のHTMLはgoldmarkの既定設定で出力されず、さらにサニタイザーで許可タグ以外が除去される。
func (r *MarkdownRenderer) Render(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("Markdownの変換に失敗しました: %w", err)
	}
	return template.HTML(r.sanitizer.Sanitize(buf.String())), nil
}
