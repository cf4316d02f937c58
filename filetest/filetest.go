// Package filetest compares what a test writes to an io.Writer with golden
// files under testdata/.
//
// A test registers one Target per golden file, hands the Target's Writer to
// the code under test (a logger, a trace exporter, a recorder dump) and
// defers Assert. Running "go test -update" rewrites the golden files.
package filetest

import (
	"bytes"
	"io"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

// New wraps goldie.New and returns a *Tester.
func New(t *testing.T, opts ...goldie.Option) *Tester { //nolint:thelper
	return &Tester{
		G:     goldie.New(t, opts...),
		T:     t,
		Files: make(map[string]*Target),
	}
}

// Tester collects write targets, one per golden file.
type Tester struct {
	G *goldie.Goldie
	T *testing.T
	// Files maps a golden file name, relative to the fixture directory,
	// to its target.
	Files map[string]*Target
}

// Target buffers writes for one golden file. Filters run in order on the
// buffered content before it is compared.
type Target struct {
	Buffer  *bytes.Buffer
	Filters []Filter
}

// Filter transforms content before comparison, like a UNIX pipe.
type Filter func([]byte) []byte

// Add registers a new target under name, replacing any earlier one.
func (g *Tester) Add(name string) *Target {
	tg := &Target{Buffer: new(bytes.Buffer)}
	g.Files[name] = tg
	return tg
}

// Filter appends a filter to the Target.
func (tg *Target) Filter(filter Filter) *Target {
	tg.Filters = append(tg.Filters, filter)
	return tg
}

// Writer returns the buffer content sources write to.
func (tg *Target) Writer() io.Writer { return tg.Buffer }

// Content returns the buffered bytes with all filters applied.
func (tg *Target) Content() []byte {
	content := tg.Buffer.Bytes()
	for _, filter := range tg.Filters {
		content = filter(content)
	}
	return content
}

func (g *Tester) do(fn func(*testing.T, string, []byte)) {
	names := make([]string, 0, len(g.Files))
	for name := range g.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		name, content := name, g.Files[name].Content()
		g.T.Run(name, func(t *testing.T) {
			fn(t, name, content)
		})
	}
}

// Assert checks every registered golden file in its own sub-test.
//
// Pass "-update" to "go test" to rewrite the files under testdata/.
func (g *Tester) Assert() { g.do(g.G.Assert) }

// Update writes the current content of every target to its golden file.
func (g *Tester) Update() {
	g.do(func(t *testing.T, name string, content []byte) { //nolint:thelper
		assert.Nil(t, g.G.Update(t, name, content))
	})
}

// TrimTrailingSpace removes trailing whitespace from every line.
func TrimTrailingSpace(content []byte) []byte {
	lines := bytes.Split(content, newlineSep)
	for i := range lines {
		lines[i] = bytes.TrimRightFunc(lines[i], isSpace)
	}
	return bytes.Join(lines, newlineSep)
}
