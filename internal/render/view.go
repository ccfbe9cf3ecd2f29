package render

import (
	"bytes"
	"encoding/json"

	"github.com/iago/atomize-client/internal/domain"
)

// ItemView is one draft card: an optional id header over an indented dump of
// the whole item.
type ItemView struct {
	Header string
	Body   string
}

type Tab struct {
	Channel domain.Channel
	Label   string
	Items   []ItemView
}

// Link is a named downloadable asset. Group is set for posters only.
type Link struct {
	Group string
	Name  string
	URL   string
}

// View is the display model of one results payload.
type View struct {
	Summary    string
	Tabs       []Tab
	Posters    []Link
	Docs       []Link
	Cards      []Link
	TotalPosts int
}

func (v View) Empty() bool {
	return v.TotalPosts == 0
}

func (v View) Tab(channel domain.Channel) (Tab, bool) {
	for _, tab := range v.Tabs {
		if tab.Channel == channel {
			return tab, true
		}
	}
	return Tab{}, false
}

// Project builds a View from results. It has no side effects and the same
// input always yields the same View.
func Project(results domain.ResultSet) View {
	view := View{
		Summary: results.SummaryText(),
		Tabs:    make([]Tab, 0, len(domain.Channels)),
	}

	for _, info := range domain.Channels {
		items := results.Drafts[info.Key]
		tab := Tab{Channel: info.Key, Label: info.Label, Items: make([]ItemView, 0, len(items))}
		for _, item := range items {
			tab.Items = append(tab.Items, ItemView{Header: item.ID(), Body: indent(item.Raw())})
		}
		view.TotalPosts += len(tab.Items)
		view.Tabs = append(view.Tabs, tab)
	}

	for _, group := range results.Posters {
		for _, asset := range group.Assets {
			view.Posters = append(view.Posters, Link{Group: group.Name, Name: asset.Name, URL: asset.URL})
		}
	}
	view.Docs = links(results.Docs)
	view.Cards = links(results.Cards)
	return view
}

func links(assets []domain.Asset) []Link {
	out := make([]Link, 0, len(assets))
	for _, asset := range assets {
		out = append(out, Link{Name: asset.Name, URL: asset.URL})
	}
	return out
}

func indent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buffer bytes.Buffer
	if err := json.Indent(&buffer, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buffer.String()
}
