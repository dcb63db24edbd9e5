// Package source wraps a piece of evaluated source text with the
// display name host-facing errors report it under. An interpreter has
// no file system surface, so a SourceFile is always synthetic:
// "<sandbox>" for constructor input, "<eval>"/"<function>" for code
// compiled at run time, "<ast>" when the host supplied a pre-parsed
// program with no retained text.
package source

import "strings"

// SourceFile is one unit of evaluated source text.
type SourceFile struct {
	Name    string
	Content string
	lines   []string
}

// NewSourceFile wraps content under the given display name.
func NewSourceFile(name, content string) *SourceFile {
	return &SourceFile{Name: name, Content: content}
}

// Lines returns the source split into lines, cached after the first
// call, for hosts that want to quote the offending line when
// reporting a SandboxError position.
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}
