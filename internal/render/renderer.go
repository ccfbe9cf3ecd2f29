package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iago/atomize-client/internal/domain"
)

// EmptyMessage is drawn when a result set carries no drafts in any channel.
const EmptyMessage = "No drafts were generated for this job."

var (
	ErrNotRendered    = errors.New("no results rendered yet")
	ErrUnknownChannel = errors.New("unknown channel")
)

// Surface is the drawing target of a Renderer. Clear must drop everything a
// previous frame drew; Present makes the current frame visible.
type Surface interface {
	Clear()
	DrawSummary(summary string)
	DrawTabs(tabs []Tab, selected domain.Channel)
	DrawItems(tab Tab)
	DrawEmpty(message string)
	DrawPosters(posters []Link)
	DrawDocs(docs []Link)
	DrawCards(cards []Link)
	Present() error
}

// Renderer keeps the last projected View so tab switches redraw without a
// new fetch. It holds no API client.
type Renderer struct {
	surface Surface

	mu       sync.Mutex
	view     View
	selected domain.Channel
	rendered bool
	err      error
}

func NewRenderer(surface Surface) *Renderer {
	return &Renderer{surface: surface}
}

// Render replaces whatever was drawn before with results. The first channel
// tab is selected.
func (r *Renderer) Render(results domain.ResultSet) {
	view := Project(results)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.view = view
	r.selected = domain.Channels[0].Key
	r.rendered = true

	r.surface.Clear()
	if view.Summary != "" {
		r.surface.DrawSummary(view.Summary)
	}
	r.surface.DrawTabs(view.Tabs, r.selected)
	if view.Empty() {
		r.surface.DrawEmpty(EmptyMessage)
	} else {
		tab, _ := view.Tab(r.selected)
		r.surface.DrawItems(tab)
	}
	r.surface.DrawPosters(view.Posters)
	r.surface.DrawDocs(view.Docs)
	r.surface.DrawCards(view.Cards)
	r.err = r.surface.Present()
}

// SelectTab redraws the tab bar and the item list for channel from the cached
// View.
func (r *Renderer) SelectTab(channel domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.rendered {
		return ErrNotRendered
	}
	tab, ok := r.view.Tab(channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	r.selected = channel
	r.surface.DrawTabs(r.view.Tabs, channel)
	if r.view.Empty() {
		r.surface.DrawEmpty(EmptyMessage)
	} else {
		r.surface.DrawItems(tab)
	}
	r.err = r.surface.Present()
	return r.err
}

// View returns the cached projection and whether Render has run.
func (r *Renderer) View() (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view, r.rendered
}

func (r *Renderer) Selected() domain.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Err returns the error of the last Present, if any.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
