// Package artifact encodes the code scaffold that the assistant embeds in a
// chat message: a summary, a file tree and optional build/start commands,
// carried as a ```json fenced block inside the message text.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNoArtifact = errors.New("artifact: no fenced json block")
	ErrMalformed  = errors.New("artifact: malformed json block")
)

var fencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// CommandSpec is an executable and its arguments.
type CommandSpec struct {
	Program string   `json:"mainItem"`
	Args    []string `json:"commands,omitempty"`
}

type Artifact struct {
	Summary      string       `json:"text"`
	FileTree     FileTree     `json:"fileTree,omitempty"`
	BuildCommand *CommandSpec `json:"buildCommand,omitempty"`
	StartCommand *CommandSpec `json:"startCommand,omitempty"`
}

// HasFiles reports whether the artifact carries at least one entry.
func (a *Artifact) HasFiles() bool {
	return a != nil && len(a.FileTree) > 0
}

// Decode returns the artifact in body, or false when body has none or it
// does not parse. Ordinary chat text takes the false path.
func Decode(body string) (*Artifact, bool) {
	a, err := DecodeErr(body)
	if err != nil {
		return nil, false
	}
	return a, true
}

// DecodeErr is Decode with the failure reason kept for logging.
func DecodeErr(body string) (*Artifact, error) {
	match := fencePattern.FindStringSubmatch(body)
	if match == nil {
		return nil, ErrNoArtifact
	}

	blob := bytes.TrimSpace([]byte(match[1]))
	if len(blob) == 0 || blob[0] != '{' {
		return nil, ErrMalformed
	}

	var a Artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	normalize(&a)
	return &a, nil
}

func normalize(a *Artifact) {
	if len(a.FileTree) == 0 {
		a.FileTree = nil
	}
	for _, cmd := range []*CommandSpec{a.BuildCommand, a.StartCommand} {
		if cmd != nil && len(cmd.Args) == 0 {
			cmd.Args = nil
		}
	}
}

// Encode renders a as a complete message body.
func Encode(a *Artifact) (string, error) {
	if a == nil {
		return "", errors.New("artifact: nil artifact")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return "", fmt.Errorf("artifact: encode: %w", err)
	}
	// Backticks only occur inside JSON strings, so escaping them keeps file
	// contents from closing the fence early.
	blob := strings.ReplaceAll(strings.TrimRight(buf.String(), "\n"), "`", "\\u0060")
	return "```json\n" + blob + "\n```", nil
}
