package shell

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/geostudio-web/internal/mapwidget"
	"finitefield.org/geostudio-web/internal/pages"
)

type scrollCounter struct{ n int }

func (c *scrollCounter) ScrollToTop() { c.n++ }

type plainBlock struct{ id pages.ID }

func (b *plainBlock) Page() pages.ID { return b.id }

func (b *plainBlock) Render(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, string(b.id))
	return err
}

type lifecycleLog struct {
	mu     sync.Mutex
	events []string
}

func (l *lifecycleLog) add(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *lifecycleLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type mapBlock struct {
	plainBlock
	log    *lifecycleLog
	widget *mapwidget.Widget
}

func (b *mapBlock) Mount(doc mapwidget.Document) error {
	b.log.add("mount")
	return b.widget.Mount(doc)
}

func (b *mapBlock) Unmount(doc mapwidget.Document) error {
	b.log.add("unmount")
	return b.widget.Unmount(doc)
}

func (b *mapBlock) ScriptLoaded(doc mapwidget.Document, h mapwidget.Handle) (bool, error) {
	return b.widget.ScriptLoaded(doc, h)
}

type countingDoc struct {
	attached map[mapwidget.Handle]bool
	created  int
	removed  int
}

func newCountingDoc() *countingDoc {
	return &countingDoc{attached: map[mapwidget.Handle]bool{}}
}

func (d *countingDoc) AttachScript(h mapwidget.Handle, _ string) error {
	d.attached[h] = true
	return nil
}

func (d *countingDoc) AttachStylesheet(h mapwidget.Handle, _ string) error {
	d.attached[h] = true
	return nil
}

func (d *countingDoc) Detach(h mapwidget.Handle) error {
	delete(d.attached, h)
	return nil
}

func (d *countingDoc) CreateMap(mapwidget.MapSpec) error {
	d.created++
	return nil
}

func (d *countingDoc) RemoveMap(string) error {
	d.removed++
	return nil
}

func newTestRegistry(t *testing.T, log *lifecycleLog) *pages.Registry {
	t.Helper()
	factories := make(map[pages.ID]pages.Factory)
	for _, id := range pages.All() {
		id := id
		factories[id] = func() pages.Block { return &plainBlock{id: id} }
	}
	factories[pages.Contact] = func() pages.Block {
		return &mapBlock{
			plainBlock: plainBlock{id: pages.Contact},
			log:        log,
			widget:     mapwidget.New(mapwidget.DefaultConfig()),
		}
	}
	reg, err := pages.NewRegistry(factories)
	require.NoError(t, err)
	return reg
}

func TestNewShellStartsAtHome(t *testing.T) {
	t.Parallel()

	s := New(newTestRegistry(t, &lifecycleLog{}))
	require.Equal(t, "home", s.Current())

	frame, err := s.Render(mapwidget.Discard)
	require.NoError(t, err)
	require.Equal(t, pages.Home, frame.Page)
	require.True(t, frame.Changed)
}

func TestActivateScrollsExactlyOnce(t *testing.T) {
	t.Parallel()

	s := New(newTestRegistry(t, &lifecycleLog{}))
	for _, target := range []string{"services", "services", "about", "home"} {
		fx := &scrollCounter{}
		s.Activate(target, fx)
		require.Equal(t, 1, fx.n, "target %q", target)
		require.Equal(t, target, s.Current())
	}
}

func TestUnknownTargetIsStoredVerbatimAndRendersHome(t *testing.T) {
	t.Parallel()

	s := New(newTestRegistry(t, &lifecycleLog{}))
	frame, err := s.Navigate("Case_Studies", mapwidget.Discard, &scrollCounter{})
	require.NoError(t, err)
	require.Equal(t, "Case_Studies", frame.Current)
	require.Equal(t, pages.Home, frame.Page)
	require.Equal(t, pages.Home, frame.Block.Page())
}

func TestSameResolvedPageKeepsInstance(t *testing.T) {
	t.Parallel()

	s := New(newTestRegistry(t, &lifecycleLog{}))
	first, err := s.Navigate("services", mapwidget.Discard, nil)
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := s.Navigate("services", mapwidget.Discard, nil)
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.Same(t, first.Block, second.Block)

	home, err := s.Navigate("home", mapwidget.Discard, nil)
	require.NoError(t, err)
	require.True(t, home.Changed)

	unknown, err := s.Navigate("about", mapwidget.Discard, nil)
	require.NoError(t, err)
	require.False(t, unknown.Changed, "about resolves to the already mounted home block")
}

func TestContactLifecycleAcrossNavigation(t *testing.T) {
	t.Parallel()

	log := &lifecycleLog{}
	s := New(newTestRegistry(t, log))
	doc := newCountingDoc()

	_, err := s.Navigate("contact", doc, nil)
	require.NoError(t, err)
	require.Len(t, doc.attached, 2)

	var script mapwidget.Handle
	for h := range doc.attached {
		if len(h) > len("map-script-") && h[:len("map-script-")] == "map-script-" {
			script = h
		}
	}
	require.NotEmpty(t, script)

	created, err := s.ScriptLoaded(doc, script)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 1, doc.created)

	_, err = s.Navigate("team", doc, nil)
	require.NoError(t, err)
	require.Empty(t, doc.attached)
	require.Equal(t, 1, doc.removed)
	require.Equal(t, []string{"mount", "unmount"}, log.snapshot())

	created, err = s.ScriptLoaded(doc, script)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 1, doc.created)
}

func TestScriptLoadedAfterNavigatingAwayBeforeLoad(t *testing.T) {
	t.Parallel()

	s := New(newTestRegistry(t, &lifecycleLog{}))
	doc := newCountingDoc()

	frame, err := s.Navigate("contact", doc, nil)
	require.NoError(t, err)
	script := frame.Block.(*mapBlock).widget.Snapshot().Script

	_, err = s.Navigate("services", doc, nil)
	require.NoError(t, err)

	created, err := s.ScriptLoaded(doc, script)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 0, doc.created)
	require.Equal(t, 0, doc.removed)
	require.Empty(t, doc.attached)
}

func TestResetReturnsHomeAndDropsMountedBlock(t *testing.T) {
	t.Parallel()

	log := &lifecycleLog{}
	s := New(newTestRegistry(t, log))
	doc := newCountingDoc()

	_, err := s.Navigate("contact", doc, nil)
	require.NoError(t, err)

	frame, err := s.Reset(doc)
	require.NoError(t, err)
	require.Equal(t, pages.Home, frame.Page)
	require.Equal(t, "home", s.Current())
	require.True(t, frame.Changed)
	require.Len(t, doc.attached, 2, "the old document is gone, so nothing is detached from the new one")
	require.Equal(t, []string{"mount", "unmount"}, log.snapshot())
}

func TestConcurrentNavigationIsSerialised(t *testing.T) {
	t.Parallel()

	s := New(newTestRegistry(t, &lifecycleLog{}))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := pages.All()[i%len(pages.All())]
			frame, err := s.Navigate(string(target), mapwidget.Discard, nil)
			if err == nil && frame.Page != target {
				t.Errorf("navigate %s rendered %s", target, frame.Page)
			}
		}(i)
	}
	wg.Wait()
}

func TestStoreGetCreatesOncePerSession(t *testing.T) {
	t.Parallel()

	store := NewStore(newTestRegistry(t, &lifecycleLog{}), time.Minute)
	a := store.Get("a")
	require.Same(t, a, store.Get("a"))
	require.NotSame(t, a, store.Get("b"))
	require.Equal(t, 2, store.Len())
}

func TestStoreSweepEvictsIdleShells(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(newTestRegistry(t, &lifecycleLog{}), 10*time.Minute, WithClock(func() time.Time { return now }))

	store.Get("idle")
	now = now.Add(6 * time.Minute)
	store.Get("active")
	now = now.Add(6 * time.Minute)

	require.Equal(t, 1, store.Sweep())
	require.Equal(t, 1, store.Len())

	fresh := store.Get("idle")
	require.Equal(t, "home", fresh.Current())
}

func TestStoreWithoutTTLNeverSweeps(t *testing.T) {
	t.Parallel()

	store := NewStore(newTestRegistry(t, &lifecycleLog{}), 0)
	store.Get("a")
	require.Equal(t, 0, store.Sweep())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.Run(ctx, time.Millisecond, nil)
	require.Equal(t, 1, store.Len())
}

func TestStoreRunStopsWithContext(t *testing.T) {
	t.Parallel()

	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := NewStore(newTestRegistry(t, &lifecycleLog{}), time.Minute, WithClock(clock))
	store.Get("a")
	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Run(ctx, 5*time.Millisecond, func(n int) {
			if n > 0 {
				select {
				case swept <- n:
				default:
				}
			}
		})
	}()

	select {
	case n := <-swept:
		require.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
	cancel()
	<-done
	require.Equal(t, 0, store.Len())
}
