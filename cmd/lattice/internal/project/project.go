// Package project locates and describes the Go module a lattice command
// runs in.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/go-drift/lattice/pkg/config"
)

// LatticeModule is the module path applications require.
const LatticeModule = "github.com/go-drift/lattice"

// Resolved contains the resolved project values.
type Resolved struct {
	Root       string
	ModulePath string
	Name       string
	// LatticeVersion is the required lattice version, or "" when go.mod
	// does not require it. A replace directive reports its target.
	LatticeVersion string
	Replaced       string
	// ConfigPath is the lattice.yaml path, or "" when the file is absent.
	ConfigPath string
	Config     *config.Config
}

// FindProjectRoot walks up from dir to find go.mod.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

// Resolve reads go.mod and the optional lattice.yaml in root.
func Resolve(root string) (*Resolved, error) {
	path := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}
	mf, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}
	if mf.Module == nil || mf.Module.Mod.Path == "" {
		return nil, fmt.Errorf("could not determine module path from go.mod")
	}

	res := &Resolved{
		Root:       root,
		ModulePath: mf.Module.Mod.Path,
		Name:       defaultAppName(mf.Module.Mod.Path, root),
	}
	for _, req := range mf.Require {
		if req.Mod.Path == LatticeModule {
			res.LatticeVersion = req.Mod.Version
		}
	}
	for _, rep := range mf.Replace {
		if rep.Old.Path == LatticeModule {
			res.Replaced = rep.New.Path
			if rep.New.Version != "" {
				res.Replaced += "@" + rep.New.Version
			}
		}
	}

	cfgPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		res.ConfigPath = cfgPath
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if res.Config, err = config.LoadOptional(root); err != nil {
		return nil, err
	}
	return res, nil
}

// ValidateModulePath reports whether path can be used as a new module path.
func ValidateModulePath(path string) error {
	if path == "" {
		return fmt.Errorf("module path cannot be empty")
	}
	if err := module.CheckImportPath(path); err != nil {
		return fmt.Errorf("invalid module path: %w", err)
	}
	return nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	modName, _, ok := module.SplitPathVersion(modulePath)
	if ok {
		parts := strings.Split(modName, "/")
		if len(parts) > 0 {
			base = parts[len(parts)-1]
		}
	}
	if base == "" {
		return "lattice_app"
	}
	return base
}
