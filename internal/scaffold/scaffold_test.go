package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe-cli/vibe/internal/errors"
)

const sampleTree = "# Project Structure\n" +
	"\n" +
	"```\n" +
	"myapp/\n" +
	"├── cmd/\n" +
	"│   └── main.go\n" +
	"├── internal/\n" +
	"│   ├── server/\n" +
	"│   │   └── server.go  # HTTP entry\n" +
	"│   └── store.go\n" +
	"├── go.mod\n" +
	"└── README.md\n" +
	"```\n" +
	"\n" +
	"Notes outside the fence are ignored, even lines like src/ignored.go\n"

func TestParseTreeNesting(t *testing.T) {
	entries := ParseTree(sampleTree)

	paths := make(map[string]bool)
	for _, e := range entries {
		paths[e.Path] = e.IsDir
	}

	assert.True(t, paths["myapp"])
	assert.True(t, paths[filepath.Join("myapp", "cmd")])
	assert.False(t, paths[filepath.Join("myapp", "cmd", "main.go")])
	assert.False(t, paths[filepath.Join("myapp", "internal", "server", "server.go")])
	assert.False(t, paths[filepath.Join("myapp", "internal", "store.go")])
	assert.False(t, paths[filepath.Join("myapp", "go.mod")])
	assert.NotContains(t, paths, "src/ignored.go")
}

func TestParseTreeStripsComments(t *testing.T) {
	entries := ParseTree(sampleTree)
	for _, e := range entries {
		assert.NotContains(t, e.Path, "#")
		assert.NotContains(t, e.Path, "HTTP")
	}
}

func TestParseTreeWithoutRootHeader(t *testing.T) {
	tree := "```\n" +
		"├── src/\n" +
		"│   └── app.py\n" +
		"└── setup.py\n" +
		"```\n"
	entries := ParseTree(tree)

	paths := make(map[string]bool)
	for _, e := range entries {
		paths[e.Path] = e.IsDir
	}
	assert.True(t, paths["src"])
	assert.False(t, paths[filepath.Join("src", "app.py")])
	assert.False(t, paths["setup.py"])
}

func TestParseTreeNoFence(t *testing.T) {
	assert.Empty(t, ParseTree("just prose\nwith no code block\n"))
}

func TestScaffoldCreatesTree(t *testing.T) {
	root := t.TempDir()
	entries := ParseTree(sampleTree)

	created, err := Scaffold(root, entries, false)
	require.NoError(t, err)
	assert.NotEmpty(t, created)

	assert.DirExists(t, filepath.Join(root, "myapp", "internal", "server"))
	assert.FileExists(t, filepath.Join(root, "myapp", "cmd", "main.go"))

	data, err := os.ReadFile(filepath.Join(root, "myapp", "cmd", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))

	readme, err := os.ReadFile(filepath.Join(root, "myapp", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# README\n", string(readme))
}

func TestScaffoldPreservesExistingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.md"), []byte("original"), 0o644))

	_, err := Scaffold(root, []Entry{{Path: "kept.md"}}, false)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "kept.md"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestScaffoldForceOverwrites(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.md"), []byte("original"), 0o644))

	_, err := Scaffold(root, []Entry{{Path: "kept.md"}}, true)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "kept.md"))
	require.NoError(t, err)
	assert.Equal(t, "# kept\n", string(data))
}

func TestScaffoldRejectsEscapingPaths(t *testing.T) {
	root := t.TempDir()

	_, err := Scaffold(root, []Entry{{Path: "../outside.txt"}}, false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFileUnsafePath))
	assert.NoFileExists(t, filepath.Join(root, "..", "outside.txt"))
}

func TestDefaultContentByExtension(t *testing.T) {
	assert.Equal(t, "package server\n", defaultContent("a/server.go"))
	assert.Equal(t, "\"\"\"app module.\"\"\"\n", defaultContent("app.py"))
	assert.Equal(t, "{}\n", defaultContent("data.json"))
	assert.Equal(t, "# Configuration\n", defaultContent("conf.yaml"))
	assert.Equal(t, "", defaultContent("Makefile"))
}
