package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Parse decodes and validates a TOML workflow definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := toml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse workflow definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile parses and validates a single TOML workflow definition file.
func LoadFile(path string) (*Definition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workflow definition: %w", err)
	}
	defer file.Close()

	var def Definition
	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse workflow definition %s: %w", filepath.Base(path), err)
	}
	if def.ID == "" {
		def.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDir loads every *.toml definition under dir, sorted by filename. A
// missing directory is not an error; the daemon can run with definitions
// registered over the API only.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workflow definitions dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		def, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
