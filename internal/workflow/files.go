package workflow

import (
	"regexp"
	"strings"
)

// GeneratedFile is one file extracted from a generation response.
type GeneratedFile struct {
	Path    string
	Content string
}

var fileHeaderRe = regexp.MustCompile(`^FILE:\s*(\S+)\s*$`)

// ParseFileBlocks extracts FILE: path headers followed by fenced code
// blocks from a generation response. Prose between files is ignored.
func ParseFileBlocks(content string) []GeneratedFile {
	var files []GeneratedFile
	var current string
	var body strings.Builder
	inFence := false

	for _, line := range strings.Split(content, "\n") {
		if inFence {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inFence = false
				files = append(files, GeneratedFile{
					Path:    current,
					Content: strings.TrimRight(body.String(), "\n") + "\n",
				})
				current = ""
				body.Reset()
				continue
			}
			body.WriteString(line)
			body.WriteByte('\n')
			continue
		}

		if m := fileHeaderRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			current = m[1]
			continue
		}
		if current != "" && strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = true
		}
	}
	// An unterminated fence is a malformed response; its file is dropped.
	return files
}
