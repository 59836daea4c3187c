package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatgate/pkg/types"
)

// defaultContextWindow is assumed for models discovered by directory scan.
const defaultContextWindow = 4096

// catalogFile is the on-disk shape of a catalog file.
type catalogFile struct {
	Models []types.ModelDescriptor `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads a catalog file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("empty catalog path")
	}
	p, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	for i := range f.Models {
		if f.Models[i].ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if f.Models[i].ContextWindow <= 0 {
			f.Models[i].ContextWindow = defaultContextWindow
		}
	}
	return New(f.Models), nil
}

// ScanDir builds a catalog from *.gguf files in a directory. The id is the
// full filename; VRAM is estimated from file size.
func ScanDir(dir string) (*Catalog, error) {
	base, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.ModelDescriptor
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		p := filepath.Join(abs, name)
		models = append(models, types.ModelDescriptor{
			ID:             name,
			VRAMRequiredMB: estimateVRAMMB(p),
			ContextWindow:  defaultContextWindow,
			Path:           p,
		})
	}
	return New(models), nil
}

// estimateVRAMMB estimates load size from the weights file size in MB.
// Returns a conservative minimum of 1 when the file cannot be stat'd.
func estimateVRAMMB(path string) int {
	fi, err := os.Stat(path)
	if err != nil {
		return 1
	}
	mb := int(fi.Size() / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
