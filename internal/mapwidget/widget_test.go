package mapwidget

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type call struct {
	op  string
	arg string
}

type recordingDoc struct {
	calls       []call
	failScript  bool
	failStyle   bool
	failCreate  bool
	attached    map[Handle]bool
	mapsCreated int
}

func newRecordingDoc() *recordingDoc {
	return &recordingDoc{attached: map[Handle]bool{}}
}

func (d *recordingDoc) AttachScript(h Handle, src string) error {
	d.calls = append(d.calls, call{"attach-script", string(h)})
	if d.failScript {
		return errors.New("script blocked")
	}
	d.attached[h] = true
	return nil
}

func (d *recordingDoc) AttachStylesheet(h Handle, href string) error {
	d.calls = append(d.calls, call{"attach-style", string(h)})
	if d.failStyle {
		return errors.New("style blocked")
	}
	d.attached[h] = true
	return nil
}

func (d *recordingDoc) Detach(h Handle) error {
	d.calls = append(d.calls, call{"detach", string(h)})
	if !d.attached[h] {
		return fmt.Errorf("detach of unknown handle %s", h)
	}
	delete(d.attached, h)
	return nil
}

func (d *recordingDoc) CreateMap(spec MapSpec) error {
	d.calls = append(d.calls, call{"create", spec.Anchor})
	if d.failCreate {
		return errors.New("no anchor")
	}
	d.mapsCreated++
	return nil
}

func (d *recordingDoc) RemoveMap(anchor string) error {
	d.calls = append(d.calls, call{"remove", anchor})
	d.mapsCreated--
	return nil
}

func (d *recordingDoc) count(op string) int {
	n := 0
	for _, c := range d.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func sequentialHandles() Option {
	n := 0
	return WithHandles(func(kind string) Handle {
		n++
		return Handle(fmt.Sprintf("%s-%d", kind, n))
	})
}

func TestMountLoadUnmountReleasesEachResourceOnce(t *testing.T) {
	t.Parallel()

	doc := newRecordingDoc()
	w := New(DefaultConfig(), sequentialHandles())

	require.NoError(t, w.Mount(doc))
	snap := w.Snapshot()
	require.Equal(t, Handle("script-1"), snap.Script)
	require.Equal(t, Handle("style-2"), snap.Stylesheet)

	created, err := w.ScriptLoaded(doc, snap.Script)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 1, doc.mapsCreated)

	require.NoError(t, w.Unmount(doc))
	require.Empty(t, doc.attached)
	require.Equal(t, 0, doc.mapsCreated)
	require.Equal(t, 1, doc.count("remove"))
	require.Equal(t, 2, doc.count("detach"))

	require.NoError(t, w.Unmount(doc))
	require.Equal(t, 1, doc.count("remove"))
	require.Equal(t, 2, doc.count("detach"))
	require.False(t, w.Mounted())
}

func TestUnmountBeforeLoadNeverCreatesMap(t *testing.T) {
	t.Parallel()

	doc := newRecordingDoc()
	w := New(DefaultConfig(), sequentialHandles())

	require.NoError(t, w.Mount(doc))
	script := w.Snapshot().Script
	require.NoError(t, w.Unmount(doc))
	require.Equal(t, 0, doc.count("remove"), "no map existed, so none is removed")

	created, err := w.ScriptLoaded(doc, script)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 0, doc.count("create"))
	require.Empty(t, doc.attached)
}

func TestScriptLoadedIgnoresForeignAndRepeatedNotifications(t *testing.T) {
	t.Parallel()

	doc := newRecordingDoc()
	w := New(DefaultConfig(), sequentialHandles())
	require.NoError(t, w.Mount(doc))

	created, err := w.ScriptLoaded(doc, "script-99")
	require.NoError(t, err)
	require.False(t, created)

	created, err = w.ScriptLoaded(doc, w.Snapshot().Stylesheet)
	require.NoError(t, err)
	require.False(t, created)

	script := w.Snapshot().Script
	created, err = w.ScriptLoaded(doc, script)
	require.NoError(t, err)
	require.True(t, created)

	created, err = w.ScriptLoaded(doc, script)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 1, doc.count("create"))
}

func TestStaleHandleFromEarlierMountIsIgnored(t *testing.T) {
	t.Parallel()

	doc := newRecordingDoc()
	w := New(DefaultConfig(), sequentialHandles())

	require.NoError(t, w.Mount(doc))
	stale := w.Snapshot().Script
	require.NoError(t, w.Unmount(doc))
	require.NoError(t, w.Mount(doc))

	created, err := w.ScriptLoaded(doc, stale)
	require.NoError(t, err)
	require.False(t, created)

	created, err = w.ScriptLoaded(doc, w.Snapshot().Script)
	require.NoError(t, err)
	require.True(t, created)
}

func TestMountIsIdempotent(t *testing.T) {
	t.Parallel()

	doc := newRecordingDoc()
	w := New(DefaultConfig(), sequentialHandles())

	require.NoError(t, w.Mount(doc))
	require.NoError(t, w.Mount(doc))
	require.Equal(t, 1, doc.count("attach-script"))
	require.Equal(t, 1, doc.count("attach-style"))
}

func TestFailedAttachIsNotReleased(t *testing.T) {
	t.Parallel()

	doc := newRecordingDoc()
	doc.failScript = true
	w := New(DefaultConfig(), sequentialHandles())

	err := w.Mount(doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "attach script")
	require.True(t, w.Mounted())
	require.Empty(t, w.Snapshot().Script)

	created, err := w.ScriptLoaded(doc, "script-1")
	require.NoError(t, err)
	require.False(t, created)

	require.NoError(t, w.Unmount(doc))
	require.Equal(t, 1, doc.count("detach"), "only the stylesheet was attached")
	require.Empty(t, doc.attached)
}

func TestCreateFailureLeavesWidgetRetryable(t *testing.T) {
	t.Parallel()

	doc := newRecordingDoc()
	doc.failCreate = true
	w := New(DefaultConfig(), sequentialHandles())
	require.NoError(t, w.Mount(doc))

	script := w.Snapshot().Script
	created, err := w.ScriptLoaded(doc, script)
	require.Error(t, err)
	require.False(t, created)

	require.NoError(t, w.Unmount(doc))
	require.Equal(t, 0, doc.count("remove"))
}

func TestDefaultConfigSpec(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	spec := cfg.Spec()
	require.Equal(t, "map-container", spec.Anchor)
	require.Equal(t, 14, spec.Zoom)
	require.InDelta(t, -0.397316, spec.Center.Lat, 1e-9)
	require.InDelta(t, 36.960876, spec.Center.Lng, 1e-9)
	require.Equal(t, spec.Center, spec.Marker.Position)
	require.True(t, spec.Marker.OpenPopup)
	require.Contains(t, spec.Tiles.Attribution, "OpenStreetMap")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"script": func(c *Config) { c.ScriptURL = "" },
		"style":  func(c *Config) { c.StylesheetURL = "" },
		"anchor": func(c *Config) { c.Anchor = "" },
		"tiles":  func(c *Config) { c.TileURL = "" },
		"zoom":   func(c *Config) { c.Zoom = 40 },
		"center": func(c *Config) { c.Center.Lat = 120 },
	}
	for name, mutate := range cases {
		name, mutate := name, mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDefaultHandlesAreUnique(t *testing.T) {
	t.Parallel()

	w := New(DefaultConfig())
	require.NoError(t, w.Mount(Discard))
	snap := w.Snapshot()
	require.NotEqual(t, snap.Script, snap.Stylesheet)
	require.Regexp(t, `^map-script-[0-9A-Z]{26}$`, string(snap.Script))
	require.Regexp(t, `^map-style-[0-9A-Z]{26}$`, string(snap.Stylesheet))
}
