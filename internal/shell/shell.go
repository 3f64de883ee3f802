package shell

import (
	"errors"
	"fmt"
	"sync"

	"finitefield.org/geostudio-web/internal/mapwidget"
	"finitefield.org/geostudio-web/internal/pages"
)

// Effects receives the side effects of an activation.
type Effects interface {
	ScrollToTop()
}

// Mounter is implemented by blocks that acquire document resources when displayed.
type Mounter interface {
	Mount(doc mapwidget.Document) error
}

// Unmounter is implemented by blocks that release document resources when replaced.
type Unmounter interface {
	Unmount(doc mapwidget.Document) error
}

// ScriptListener is implemented by blocks waiting on an external script.
type ScriptListener interface {
	ScriptLoaded(doc mapwidget.Document, h mapwidget.Handle) (bool, error)
}

// State is the application view-state. The zero value is not used; see NewState.
type State struct {
	current string
}

// NewState returns the state of a freshly loaded document.
func NewState() State {
	return State{current: string(pages.Default)}
}

// Current returns the raw page identifier, which may be outside the known set.
func (s State) Current() string { return s.current }

// Frame describes what a render produced.
type Frame struct {
	// Current is the raw view-state value.
	Current string
	// Page is the page Current resolved to.
	Page  pages.ID
	Block pages.Block
	// Changed is false when the previously mounted block was kept.
	Changed bool
}

// Shell owns the view-state of one browser session and the block instance
// currently displayed for it. All methods are safe for concurrent use.
type Shell struct {
	mu       sync.Mutex
	registry *pages.Registry
	state    State
	mounted  pages.Block
}

// New returns a shell showing the default page. No block is mounted until the
// first Render.
func New(registry *pages.Registry) *Shell {
	return &Shell{registry: registry, state: NewState()}
}

// Activate sets the view-state to target verbatim and requests one scroll to
// the top of the viewport.
func (s *Shell) Activate(target string, fx Effects) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activate(target, fx)
}

func (s *Shell) activate(target string, fx Effects) {
	s.state.current = target
	if fx != nil {
		fx.ScrollToTop()
	}
}

// Current returns the raw view-state.
func (s *Shell) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current()
}

// Render reconciles the mounted block with the view-state. A block for the same
// resolved page is kept; otherwise the old block is unmounted before the new
// one is mounted.
func (s *Shell) Render(doc mapwidget.Document) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(doc)
}

func (s *Shell) render(doc mapwidget.Document) (Frame, error) {
	page := s.registry.Canonical(s.state.current)
	frame := Frame{Current: s.state.current, Page: page}
	if s.mounted != nil && s.mounted.Page() == page {
		frame.Block = s.mounted
		return frame, nil
	}

	var errs []error
	if u, ok := s.mounted.(Unmounter); ok {
		if err := u.Unmount(doc); err != nil {
			errs = append(errs, fmt.Errorf("unmount %s: %w", s.mounted.Page(), err))
		}
	}
	block := s.registry.Resolve(string(page))
	if m, ok := block.(Mounter); ok {
		if err := m.Mount(doc); err != nil {
			errs = append(errs, fmt.Errorf("mount %s: %w", page, err))
		}
	}
	s.mounted = block
	frame.Block = block
	frame.Changed = true
	return frame, errors.Join(errs...)
}

// Navigate activates target and renders in one step, so no other request for
// the session can observe the state in between.
func (s *Shell) Navigate(target string, doc mapwidget.Document, fx Effects) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activate(target, fx)
	return s.render(doc)
}

// ScriptLoaded forwards a script load notification to the mounted block. It
// reports false when no mounted block was waiting for h.
func (s *Shell) ScriptLoaded(doc mapwidget.Document, h mapwidget.Handle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.mounted.(ScriptListener)
	if !ok {
		return false, nil
	}
	return l.ScriptLoaded(doc, h)
}

// Reset handles a full document load. Resources of the previous document are
// gone with it, so the old block is unmounted against mapwidget.Discard before
// the default page is rendered into doc.
func (s *Shell) Reset(doc mapwidget.Document) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.mounted.(Unmounter); ok {
		_ = u.Unmount(mapwidget.Discard)
	}
	s.mounted = nil
	s.state = NewState()
	return s.render(doc)
}
