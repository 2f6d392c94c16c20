package core

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"compkit/internal/types"
)

// docletCache memoizes per-file doclet extraction keyed by the file's
// content hash, so unchanged files across loads parse once.
var docletCache, _ = lru.New[string, []types.Doclet](512)

var docBlockPattern = regexp.MustCompile(`(?s)/\*\*(.*?)\*/\s*\n?\s*(?:export\s+)?(?:default\s+)?(?:function|class|const|var|let)?\s*([A-Za-z_$][\w$]*)?`)

var docArgPattern = regexp.MustCompile(`@param\s+(?:\{[^}]*\}\s+)?(\S+)`)

// Docs returns the component's documentation doclets, computed lazily
// from non-test file contents on first access and cached until the
// files change.
func (c *Component) Docs() []types.Doclet {
	if c.docsComputed {
		return c.docs
	}
	var doclets []types.Doclet
	for _, f := range c.Files() {
		if f.Test || len(f.Contents) == 0 {
			continue
		}
		doclets = append(doclets, docletsForFile(f.RelativePath, f.Contents)...)
	}
	c.docs = doclets
	c.docsComputed = true
	return c.docs
}

func docletsForFile(filePath string, contents []byte) []types.Doclet {
	sum := sha256.Sum256(contents)
	key := filePath + ":" + hex.EncodeToString(sum[:8])
	if cached, ok := docletCache.Get(key); ok {
		return cached
	}
	doclets := parseDoclets(filePath, string(contents))
	docletCache.Add(key, doclets)
	return doclets
}

func parseDoclets(filePath string, contents string) []types.Doclet {
	var doclets []types.Doclet
	for _, match := range docBlockPattern.FindAllStringSubmatch(contents, -1) {
		block := match[1]
		name := match[2]
		doclet := types.Doclet{
			FilePath:    filePath,
			Name:        name,
			Description: docDescription(block),
		}
		for _, arg := range docArgPattern.FindAllStringSubmatch(block, -1) {
			doclet.Args = append(doclet.Args, arg[1])
		}
		if doclet.Name == "" && doclet.Description == "" {
			continue
		}
		doclets = append(doclets, doclet)
	}
	return doclets
}

// docDescription keeps the free-text lines of a doc block, dropping
// comment decoration and tag lines.
func docDescription(block string) string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line == "" || strings.HasPrefix(line, "@") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, " ")
}
