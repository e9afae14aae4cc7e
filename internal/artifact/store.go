// Package artifact owns the named project documents and their metadata.
// Nothing else writes these files; the store is the single source of
// truth for which phase produced a document and when it last changed.
package artifact

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/state"
	"github.com/vibe-cli/vibe/internal/util"
)

// Name identifies one of the fixed project documents.
type Name string

const (
	TechStack   Name = "TECH_STACK"
	Rules       Name = "RULES"
	PRD         Name = "PRD"
	UserStories Name = "USER_STORIES"
	Tree        Name = "TREE"
	Schema      Name = "SCHEMA"
	Todo        Name = "TODO"
	Context     Name = "CONTEXT"
)

// Names lists every artifact in canonical order.
var Names = []Name{TechStack, Rules, PRD, UserStories, Tree, Schema, Todo, Context}

// Valid reports whether n is one of the fixed artifact names.
func Valid(n Name) bool {
	for _, known := range Names {
		if n == known {
			return true
		}
	}
	return false
}

// IndexFileName is the metadata index inside the state directory.
const IndexFileName = "artifacts.yaml"

// Meta records provenance for one artifact.
type Meta struct {
	ProducedInPhase phase.Phase `yaml:"produced_in_phase"`
	LastModified    time.Time   `yaml:"last_modified"`
}

// Store persists artifacts as markdown files at the project root.
type Store struct {
	root string
}

// NewStore creates a store for the project rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the on-disk location of an artifact.
func (s *Store) Path(name Name) string {
	return filepath.Join(s.root, string(name)+".md")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, state.Dir, IndexFileName)
}

func (s *Store) loadIndex() (map[Name]Meta, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return make(map[Name]Meta), nil
	}
	if err != nil {
		return nil, errors.ErrFilePermission(s.indexPath()).WithCause(err)
	}
	idx := make(map[Name]Meta)
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, errors.ErrStateCorrupt(s.indexPath(), err)
	}
	return idx, nil
}

func (s *Store) saveIndex(idx map[Name]Meta) error {
	data, err := yaml.Marshal(idx)
	if err != nil {
		return errors.Wrap(err, "marshal artifact index")
	}
	if err := util.AtomicWriteFile(s.indexPath(), data, 0o644); err != nil {
		return errors.ErrFilePermission(s.indexPath()).WithCause(err)
	}
	return nil
}

// Write overwrites the artifact content. ProducedInPhase is stamped on
// the first write only; LastModified is bumped every time.
func (s *Store) Write(name Name, content string, p phase.Phase) error {
	if !Valid(name) {
		return errors.ErrArtifactNotFound(string(name))
	}
	path := s.Path(name)
	if !util.WithinRoot(s.root, path) {
		return errors.ErrUnsafePath(path)
	}

	idx, err := s.loadIndex()
	if err != nil {
		return err
	}

	if err := util.AtomicWriteFile(path, []byte(content), 0o644); err != nil {
		return errors.ErrFilePermission(path).WithCause(err)
	}

	meta, seen := idx[name]
	if !seen {
		meta.ProducedInPhase = p
	}
	meta.LastModified = time.Now().UTC()
	idx[name] = meta
	return s.saveIndex(idx)
}

// Read returns the artifact content.
func (s *Store) Read(name Name) (string, error) {
	if !Valid(name) {
		return "", errors.ErrArtifactNotFound(string(name))
	}
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return "", errors.ErrArtifactNotFound(string(name))
	}
	if err != nil {
		return "", errors.ErrFilePermission(s.Path(name)).WithCause(err)
	}
	return string(data), nil
}

// Exists reports whether the artifact file is present.
func (s *Store) Exists(name Name) bool {
	if !Valid(name) {
		return false
	}
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// MetaFor returns the recorded provenance for an artifact.
func (s *Store) MetaFor(name Name) (Meta, bool, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return Meta{}, false, err
	}
	m, ok := idx[name]
	return m, ok, nil
}

// List returns the names of artifacts that exist on disk, canonical order.
func (s *Store) List() []Name {
	var out []Name
	for _, n := range Names {
		if s.Exists(n) {
			out = append(out, n)
		}
	}
	return out
}
