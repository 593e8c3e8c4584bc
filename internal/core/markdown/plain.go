package markdown

import (
	"regexp"
	"strings"

	"github.com/colonyops/redline/internal/core/doc"
)

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// Plain treats text as paragraphs separated by blank lines, with no inline
// formatting.
type Plain struct{}

// ParseToBlocks implements Parser.
func (Plain) ParseToBlocks(src string) ([]*doc.Node, error) {
	var out []*doc.Node
	for _, para := range blankLines.Split(strings.ReplaceAll(src, "\r\n", "\n"), -1) {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		out = append(out, doc.P(para))
	}
	return out, nil
}
