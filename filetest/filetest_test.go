package filetest

import (
	"bytes"
	"io"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestTester(t *testing.T) {
	g := New(t, goldie.WithFixtureDir(t.TempDir()))
	defer g.Assert()
	// Writing the files first makes Assert succeed against a fresh
	// fixture directory.
	defer g.Update()

	w := g.Add("phases.txt").
		Filter(squeezeSpaces).
		Filter(bytes.TrimSpace).
		Writer()

	assert.NoError(t, writePhases(w))
	assert.Equal(t, "lookup slot-lock\ncopy", string(g.Files["phases.txt"].Content()))
}

func TestTrimTrailingSpace(t *testing.T) {
	in := []byte("lookup  \ncopy\t\n\nio ")
	assert.Equal(t, "lookup\ncopy\n\nio", string(TrimTrailingSpace(in)))
}

func squeezeSpaces(in []byte) []byte {
	for bytes.Contains(in, []byte("  ")) {
		in = bytes.ReplaceAll(in, []byte("  "), []byte(" "))
	}
	return in
}

func writePhases(w io.Writer) error {
	_, err := w.Write([]byte(`

lookup    slot-lock
copy

`))
	return err
}
