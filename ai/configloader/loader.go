// Package configloader reads the YAML files that describe providers and
// the persona.
package configloader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads YAML files relative to a base directory.
type Loader struct {
	baseDir   string
	expandEnv bool
}

// NewLoader creates a loader. With expandEnv, ${VAR} references are
// substituted before decoding so secrets can stay in the environment.
func NewLoader(baseDir string, expandEnv bool) *Loader {
	return &Loader{baseDir: baseDir, expandEnv: expandEnv}
}

// Load reads one YAML file and unmarshals it into target. Absolute paths
// ignore the base directory.
func (l *Loader) Load(path string, target any) error {
	data, err := l.read(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if l.expandEnv {
		data = []byte(os.ExpandEnv(string(data)))
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal YAML %s: %w", path, err)
	}
	return nil
}

// LoadOptional behaves like Load but leaves target untouched when the file
// does not exist.
func (l *Loader) LoadOptional(path string, target any) (bool, error) {
	if _, err := os.Stat(l.resolve(path)); os.IsNotExist(err) {
		return false, nil
	}
	if err := l.Load(path, target); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Loader) resolve(path string) string {
	if filepath.IsAbs(path) || l.baseDir == "" {
		return path
	}
	return filepath.Join(l.baseDir, path)
}

func (l *Loader) read(path string) ([]byte, error) {
	return os.ReadFile(l.resolve(path))
}
