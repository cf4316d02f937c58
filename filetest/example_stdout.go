package filetest

import (
	"io"
	"os"
	"unicode"
)

// ExampleStdout writes to os.Stdout with trailing spaces removed from each
// line. gofmt strips trailing spaces from "// Output:" comments, so
// examples whose output has them cannot match without this.
const ExampleStdout = exampleWriter(0)

var _ io.Writer = ExampleStdout

//nolint:gochecknoglobals
var newlineSep = []byte{'\n'}

func isSpace(r rune) bool { return unicode.IsSpace(r) }

type exampleWriter int

func (exampleWriter) Write(p []byte) (int, error) {
	if _, err := os.Stdout.Write(TrimTrailingSpace(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}
