package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/iago/atomize-client/internal/domain"
)

// TextSurface draws frames as plain text. Each section is buffered and
// replaced independently; Present writes the whole frame to out.
type TextSurface struct {
	out io.Writer

	mu      sync.Mutex
	summary string
	tabs    string
	items   string
	posters string
	docs    string
	cards   string
}

func NewTextSurface(out io.Writer) *TextSurface {
	return &TextSurface{out: out}
}

func (s *TextSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary, s.tabs, s.items = "", "", ""
	s.posters, s.docs, s.cards = "", "", ""
}

func (s *TextSurface) DrawSummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = "Summary\n" + prefixLines(summary, "  ") + "\n"
}

func (s *TextSurface) DrawTabs(tabs []Tab, selected domain.Channel) {
	labels := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		label := fmt.Sprintf("%s (%d)", tab.Label, len(tab.Items))
		if tab.Channel == selected {
			label = "[" + label + "]"
		}
		labels = append(labels, label)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = "Posts: " + strings.Join(labels, "  ") + "\n"
}

func (s *TextSurface) DrawItems(tab Tab) {
	var builder strings.Builder
	if len(tab.Items) == 0 {
		fmt.Fprintf(&builder, "  no %s drafts\n", tab.Label)
	}
	for _, item := range tab.Items {
		if item.Header != "" {
			fmt.Fprintf(&builder, "#%s\n", item.Header)
		}
		builder.WriteString(prefixLines(item.Body, "  "))
		builder.WriteString("\n")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = builder.String()
}

func (s *TextSurface) DrawEmpty(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = "  " + message + "\n"
}

func (s *TextSurface) DrawPosters(posters []Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posters = linkSection("Posters", posters)
}

func (s *TextSurface) DrawDocs(docs []Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = linkSection("Docs", docs)
}

func (s *TextSurface) DrawCards(cards []Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = linkSection("Cards", cards)
}

// String returns the current frame.
func (s *TextSurface) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary + s.tabs + s.items + s.posters + s.docs + s.cards
}

func (s *TextSurface) Present() error {
	if s.out == nil {
		return nil
	}
	_, err := io.WriteString(s.out, s.String())
	return err
}

func linkSection(title string, links []Link) string {
	if len(links) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(title + "\n")
	for _, link := range links {
		name := link.Name
		if link.Group != "" {
			name = link.Group + "/" + name
		}
		fmt.Fprintf(&builder, "  - %s %s\n", name, link.URL)
	}
	return builder.String()
}

func prefixLines(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
