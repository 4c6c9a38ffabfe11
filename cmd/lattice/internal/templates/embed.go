// Package templates provides embedded template files for project creation.
package templates

import (
	"embed"
	"io/fs"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed init/*
var FS embed.FS

// TemplateData contains the data for template substitution.
type TemplateData struct {
	ModulePath     string // e.g., "github.com/user/myapp"
	AppName        string // e.g., "myapp"
	LatticeVersion string // e.g., "v0.1.0"
	GoVersion      string // e.g., "1.24"
}

// ProcessTemplate processes a template string with the given data.
func ProcessTemplate(name, content string, data *TemplateData) (string, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ListFiles returns all files in the embedded filesystem under the given path.
func ListFiles(path string) ([]string, error) {
	var files []string

	err := fs.WalkDir(FS, path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})

	return files, err
}

// ReadFile reads a file from the embedded filesystem.
func ReadFile(path string) ([]byte, error) {
	return FS.ReadFile(path)
}

// GetInitFiles returns the list of init template files.
func GetInitFiles() ([]string, error) {
	return ListFiles("init")
}

// DestName maps a template path to the file it produces: the directory and
// the .tmpl suffix are dropped.
func DestName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".tmpl")
}
