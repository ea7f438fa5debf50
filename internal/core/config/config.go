package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/duskfell/cinnabar-go/internal/core/fsx"
	"github.com/duskfell/cinnabar-go/internal/core/project"
)

const ProjectTomlName = "cinnabar.toml"

// LoadProjectToml reads the cinnabar.toml file from the given dirPath and
// unmarshals it.
func LoadProjectToml(dirPath string) (*project.Project, error) {
	fullPath := filepath.Join(dirPath, ProjectTomlName)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	var proj project.Project
	if err := toml.Unmarshal(data, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

// WriteProjectToml marshals the Project data and writes it to the specified
// dirPath, overwriting any existing file.
func WriteProjectToml(dirPath string, data *project.Project) error {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(data); err != nil {
		return err
	}

	fullPath := filepath.Join(dirPath, ProjectTomlName)
	return fsx.WriteFileAtomic(fullPath, buf.Bytes(), 0644)
}
