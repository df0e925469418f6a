package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Node is either a File or a Directory.
type Node interface {
	isNode()
}

// File is a leaf holding the text of one source file.
type File struct {
	Contents string
	Language string
}

// Directory holds named children.
type Directory struct {
	Children FileTree
}

func (File) isNode()      {}
func (Directory) isNode() {}

// FileTree maps entry names to nodes. In JSON it uses the mount layout
// {"name":{"file":{"contents":...}}} / {"name":{"directory":{...}}}.
type FileTree map[string]Node

type fileJSON struct {
	Contents string `json:"contents"`
	Language string `json:"language,omitempty"`
}

type nodeJSON struct {
	File      *fileJSON `json:"file,omitempty"`
	Directory *FileTree `json:"directory,omitempty"`
}

func (t FileTree) MarshalJSON() ([]byte, error) {
	out := make(map[string]nodeJSON, len(t))
	for name, node := range t {
		switch n := node.(type) {
		case File:
			out[name] = nodeJSON{File: &fileJSON{Contents: n.Contents, Language: n.Language}}
		case Directory:
			children := n.Children
			if children == nil {
				children = FileTree{}
			}
			out[name] = nodeJSON{Directory: &children}
		default:
			return nil, fmt.Errorf("entry %q: unknown node type %T", name, node)
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (t *FileTree) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = nil
		return nil
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	tree := make(FileTree, len(raw))
	for name, entry := range raw {
		fileRaw, isFile := entry["file"]
		dirRaw, isDir := entry["directory"]
		switch {
		case isFile && isDir:
			return fmt.Errorf("entry %q is both file and directory", name)
		case isFile:
			if isNull(fileRaw) {
				return fmt.Errorf("entry %q: null file", name)
			}
			var f fileJSON
			if err := json.Unmarshal(fileRaw, &f); err != nil {
				return fmt.Errorf("entry %q: %w", name, err)
			}
			tree[name] = File{Contents: f.Contents, Language: f.Language}
		case isDir:
			if isNull(dirRaw) {
				return fmt.Errorf("entry %q: null directory", name)
			}
			var children FileTree
			if err := json.Unmarshal(dirRaw, &children); err != nil {
				return fmt.Errorf("entry %q: %w", name, err)
			}
			if children == nil {
				children = FileTree{}
			}
			tree[name] = Directory{Children: children}
		default:
			return fmt.Errorf("entry %q is neither file nor directory", name)
		}
	}
	*t = tree
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// splitPath returns the non-empty segments of a slash separated path.
func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// ReplaceFileContents returns a tree where the file at path holds contents.
// Only the maps along the path are copied; every other subtree is shared with
// the input. If path does not name an existing file the input is returned.
func ReplaceFileContents(tree FileTree, path string, contents string) FileTree {
	segments := splitPath(path)
	if len(segments) == 0 {
		return tree
	}
	updated, ok := replaceAt(tree, segments, contents)
	if !ok {
		return tree
	}
	return updated
}

func replaceAt(tree FileTree, segments []string, contents string) (FileTree, bool) {
	node, ok := tree[segments[0]]
	if !ok {
		return tree, false
	}

	var replacement Node
	switch n := node.(type) {
	case File:
		if len(segments) != 1 {
			return tree, false
		}
		n.Contents = contents
		replacement = n
	case Directory:
		if len(segments) == 1 {
			return tree, false
		}
		children, ok := replaceAt(n.Children, segments[1:], contents)
		if !ok {
			return tree, false
		}
		replacement = Directory{Children: children}
	default:
		return tree, false
	}

	copied := make(FileTree, len(tree))
	for name, child := range tree {
		copied[name] = child
	}
	copied[segments[0]] = replacement
	return copied, true
}

// Lookup returns the file at path.
func Lookup(tree FileTree, path string) (File, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return File{}, false
	}

	current := tree
	for i, seg := range segments {
		node, ok := current[seg]
		if !ok {
			return File{}, false
		}
		switch n := node.(type) {
		case File:
			if i == len(segments)-1 {
				return n, true
			}
			return File{}, false
		case Directory:
			if i == len(segments)-1 {
				return File{}, false
			}
			current = n.Children
		default:
			return File{}, false
		}
	}
	return File{}, false
}

// FileEntry is a flattened file with its slash separated path.
type FileEntry struct {
	Path     string `json:"file"`
	Contents string `json:"data"`
}

// Files flattens tree into path-sorted entries.
func Files(tree FileTree) []FileEntry {
	var entries []FileEntry
	collect(tree, "", &entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

func collect(tree FileTree, prefix string, out *[]FileEntry) {
	for name, node := range tree {
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		switch n := node.(type) {
		case File:
			*out = append(*out, FileEntry{Path: path, Contents: n.Contents})
		case Directory:
			collect(n.Children, path, out)
		}
	}
}
