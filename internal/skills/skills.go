// Package skills manages the registry of skill names offered for quizzes.
package skills

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pavelanni/skillmeter/internal/model"
)

// Defaults seeds a registry that does not exist yet.
var Defaults = []string{
	"Python",
	"Go",
	"SQL",
	"Data Structures",
	"Machine Learning",
}

type file struct {
	Skills []string `json:"skills"`
}

// Registry is a JSON file of skill names. Names are unique and
// case-sensitive; the list only grows.
type Registry struct {
	mu   sync.Mutex
	path string
}

// Open returns a registry backed by path. The file need not exist.
func Open(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the backing file.
func (r *Registry) Path() string { return r.path }

// List returns the skills in insertion order. A missing file is an empty
// registry.
func (r *Registry) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Add appends name if it is not present. It reports whether the registry
// changed.
func (r *Registry) Add(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, &model.ValidationError{Field: "skill", Reason: model.ReasonRequired}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	skills, err := r.load()
	if err != nil {
		return false, err
	}
	if slices.Contains(skills, name) {
		return false, nil
	}
	if err := r.save(append(skills, name)); err != nil {
		return false, err
	}
	return true, nil
}

// Seed writes Defaults when the file does not exist. It reports whether it
// wrote anything.
func (r *Registry) Seed() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat skills file: %w", err)
	}
	if err := r.save(slices.Clone(Defaults)); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Registry) load() ([]string, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills file: %w", err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse skills file %s: %w", r.path, err)
	}
	if f.Skills == nil {
		f.Skills = []string{}
	}
	return f.Skills, nil
}

// save replaces the file via a temp file in the same directory.
func (r *Registry) save(skills []string) error {
	data, err := json.MarshalIndent(file{Skills: skills}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create skills dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".skills-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write skills: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace skills file: %w", err)
	}
	return nil
}
