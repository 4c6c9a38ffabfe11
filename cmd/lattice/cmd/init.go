package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-drift/lattice/cmd/lattice/internal/project"
	"github.com/go-drift/lattice/cmd/lattice/internal/templates"
)

func init() {
	RegisterCommand(&Command{
		Name:  "init",
		Short: "Create a new lattice project",
		Long: `Create a new lattice project in a new directory.

This command creates:
  - A new directory at the specified path
  - go.mod with the specified module path
  - main.go with a starter application
  - lattice.yaml with the engine defaults

The project name is derived from the directory basename.
The module path defaults to the project name if not specified.

Flags:
  --no-tidy    Skip running go mod tidy

Examples:
  lattice init myapp
  lattice init myapp github.com/username/myapp
  lattice init ./projects/myapp --no-tidy`,
		Usage: "lattice init <directory> [module-path] [--no-tidy]",
		Run:   runInit,
	})
}

// goVersion is the go directive written to new projects.
const goVersion = "1.24"

// runInit creates a new lattice project. The first argument is the directory
// path to create. The project name is derived from the directory's basename.
// An optional second argument overrides the Go module path, which otherwise
// defaults to the project name.
func runInit(args []string) error {
	tidy := true
	var positional []string
	for _, arg := range args {
		if arg == "--no-tidy" {
			tidy = false
			continue
		}
		positional = append(positional, arg)
	}
	if len(positional) == 0 {
		return fmt.Errorf("directory is required\n\nUsage: lattice init <directory> [module-path]")
	}

	raw := positional[0]
	if strings.HasPrefix(raw, "~") {
		return fmt.Errorf("tilde (~) is not expanded by lattice; use an absolute path or $HOME instead")
	}

	dir := filepath.Clean(raw)

	// Validate directory path before deriving anything from it
	if err := validateDirectory(dir); err != nil {
		return err
	}

	projectName := filepath.Base(dir)
	modulePath := projectName
	if len(positional) > 1 {
		modulePath = positional[1]
	}
	if err := project.ValidateModulePath(modulePath); err != nil {
		return err
	}

	if err := validateProjectName(projectName); err != nil {
		return fmt.Errorf("invalid project name %q (derived from directory basename): %w", projectName, err)
	}

	if err := scaffoldProject(dir, modulePath); err != nil {
		return err
	}

	if tidy {
		fmt.Fprintln(stdout, "  Running go mod tidy...")
		tidyCmd := exec.Command("go", "mod", "tidy")
		tidyCmd.Dir = dir
		tidyCmd.Stdout = stdout
		tidyCmd.Stderr = os.Stderr
		if err := tidyCmd.Run(); err != nil {
			fmt.Fprintln(stdout, "  Warning: go mod tidy failed")
		}
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Project created successfully!\n\n")
	fmt.Fprintf(stdout, "Next steps:\n")
	fmt.Fprintf(stdout, "  cd %s\n", dir)
	fmt.Fprintf(stdout, "  go run .\n")

	return nil
}

// scaffoldProject creates the project directory and writes the template
// files. It touches nothing but the filesystem, so tests can call it without
// network access.
func scaffoldProject(dir, modulePath string) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory %q already exists", dir)
	}

	fmt.Fprintf(stdout, "Creating new lattice project: %s\n", filepath.Base(dir))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data := &templates.TemplateData{
		ModulePath:     modulePath,
		AppName:        filepath.Base(dir),
		LatticeVersion: latticeVersion(),
		GoVersion:      goVersion,
	}

	files, err := templates.GetInitFiles()
	if err != nil {
		safeRemoveAll(dir)
		return fmt.Errorf("failed to list templates: %w", err)
	}
	for _, path := range files {
		destName := templates.DestName(path)
		if err := writeInitTemplate(dir, path, destName, data); err != nil {
			safeRemoveAll(dir)
			return err
		}
		fmt.Fprintf(stdout, "  Created %s\n", destName)
	}

	return nil
}

// latticeVersion is the module version new projects require.
func latticeVersion() string {
	v := strings.TrimSuffix(Version, "-dev")
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func writeInitTemplate(projectDir, templatePath, destName string, data *templates.TemplateData) error {
	content, err := templates.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}

	out, err := templates.ProcessTemplate(destName, string(content), data)
	if err != nil {
		return fmt.Errorf("failed to process template %s: %w", templatePath, err)
	}

	destPath := filepath.Join(projectDir, destName)
	if err := os.WriteFile(destPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", destName, err)
	}

	return nil
}

// validateDirectory rejects directory paths that would be dangerous to create or
// clean up. This includes filesystem roots (/, C:\), the current/parent directory,
// and root-level absolute paths (e.g. /etc, C:\Users).
func validateDirectory(dir string) error {
	// "" is unreachable via runInit (filepath.Clean turns it into "."), but
	// direct callers may pass it. "/" is listed because isVolumeRoot does not
	// match it on Windows.
	switch dir {
	case "", "/", ".", "..":
		return fmt.Errorf("directory %q is not a valid project location", dir)
	}
	if isVolumeRoot(dir) {
		return fmt.Errorf("directory %q is not a valid project location", dir)
	}
	if filepath.IsAbs(dir) && isVolumeRoot(filepath.Dir(dir)) {
		return fmt.Errorf("refusing to create project at root-level path %q", dir)
	}
	return nil
}

// isVolumeRoot reports whether dir is a filesystem root. On Unix this is "/",
// on Windows this covers drive roots like "C:\" and the bare root "\".
func isVolumeRoot(dir string) bool {
	return dir == filepath.VolumeName(dir)+string(filepath.Separator)
}

// safeRemoveAll removes a directory only if the path passes validateDirectory.
// It is called on cleanup paths, so it no-ops instead of masking the
// original error.
func safeRemoveAll(dir string) {
	if validateDirectory(dir) != nil {
		return
	}
	os.RemoveAll(dir)
}

var validProjectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// validateProjectName checks that a project name starts with a letter and
// contains only letters, digits, underscores, and hyphens.
func validateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	// Redundant with the regex, but the messages are clearer.
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("project name cannot start with a dot")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("project name cannot start with a hyphen")
	}
	if !validProjectName.MatchString(name) {
		return fmt.Errorf("project name must start with a letter and contain only letters, numbers, underscores, and hyphens")
	}
	return nil
}
