package scan

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"archsight/internal/safeio"
)

const (
	// maxFileBytes caps what a single file read returns to the model.
	maxFileBytes = 64 * 1024
	// defaultGrepResults bounds a search when the request does not say.
	defaultGrepResults = 20
	// maxGrepResults is the hard cap regardless of the request.
	maxGrepResults = 100

	contentCacheSize = 256
)

// Service answers file and pattern-search requests against one repository
// root. Reads go through a SafeFS so a hostile path in a model reply cannot
// escape the repo; contents are cached per path.
type Service struct {
	fs    *safeio.SafeFS
	index []FileEntry
	cache *lru.Cache[string, string]
}

// NewService indexes root and prepares the read cache.
func NewService(root string) (*Service, error) {
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, err
	}
	index, err := IndexRepo(fsys.Root())
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, string](contentCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{fs: fsys, index: index, cache: cache}, nil
}

// Index returns the indexed file entries.
func (s *Service) Index() []FileEntry { return s.index }

// ReadFile returns the file's content, truncated at maxFileBytes.
func (s *Service) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if content, ok := s.cache.Get(path); ok {
		return content, nil
	}
	b, err := s.fs.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(b)
	if len(content) > maxFileBytes {
		content = content[:maxFileBytes] + "\n... (truncated)"
	}
	s.cache.Add(path, content)
	return content, nil
}

// Grep searches indexed files for a regex pattern. filePattern, when set,
// is a glob matched against the file's base name (e.g. "*.go"). Results are
// "path:line: text" lines, capped at maxResults.
func (s *Service) Grep(ctx context.Context, pattern, filePattern string, maxResults int) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("scan: bad pattern %q: %w", pattern, err)
	}
	if maxResults <= 0 {
		maxResults = defaultGrepResults
	}
	if maxResults > maxGrepResults {
		maxResults = maxGrepResults
	}

	var b strings.Builder
	found := 0
	for _, entry := range s.index {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if found >= maxResults {
			break
		}
		if filePattern != "" {
			ok, err := matchFilePattern(filePattern, entry.Path)
			if err != nil {
				return "", err
			}
			if !ok {
				continue
			}
		}
		content, err := s.ReadFile(ctx, entry.Path)
		if err != nil {
			continue // unreadable files are skipped, not fatal
		}
		for i, line := range strings.Split(content, "\n") {
			if !re.MatchString(line) {
				continue
			}
			fmt.Fprintf(&b, "%s:%d: %s\n", entry.Path, i+1, strings.TrimSpace(line))
			found++
			if found >= maxResults {
				break
			}
		}
	}
	if found == 0 {
		return "no matches", nil
	}
	return b.String(), nil
}

// matchFilePattern applies a glob to the base name, or to the whole
// relative path when the glob contains a slash.
func matchFilePattern(glob, relPath string) (bool, error) {
	target := relPath
	if !strings.Contains(glob, "/") {
		parts := strings.Split(relPath, "/")
		target = parts[len(parts)-1]
	}
	ok, err := path.Match(glob, target)
	if err != nil {
		return false, fmt.Errorf("scan: bad file pattern %q: %w", glob, err)
	}
	return ok, nil
}
