package templates

import (
	"go/parser"
	"go/token"
	"slices"
	"strings"
	"testing"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/lattice/pkg/config"
)

var testData = &TemplateData{
	ModulePath:     "github.com/user/myapp",
	AppName:        "myapp",
	LatticeVersion: "v0.1.0",
	GoVersion:      "1.24",
}

func render(t *testing.T, path string) string {
	t.Helper()
	content, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) failed: %v", path, err)
	}
	out, err := ProcessTemplate(path, string(content), testData)
	if err != nil {
		t.Fatalf("ProcessTemplate(%s) failed: %v", path, err)
	}
	return out
}

func TestGetInitFiles(t *testing.T) {
	files, err := GetInitFiles()
	if err != nil {
		t.Fatalf("GetInitFiles: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, DestName(f))
	}
	slices.Sort(names)
	want := []string{"go.mod", "lattice.yaml", "main.go"}
	if !slices.Equal(names, want) {
		t.Errorf("init files = %v, want %v", names, want)
	}
}

func TestInitGoModParses(t *testing.T) {
	out := render(t, "init/go.mod.tmpl")
	mf, err := modfile.Parse("go.mod", []byte(out), nil)
	if err != nil {
		t.Fatalf("rendered go.mod does not parse: %v\n%s", err, out)
	}
	if mf.Module.Mod.Path != testData.ModulePath {
		t.Errorf("module = %q", mf.Module.Mod.Path)
	}
	if len(mf.Require) != 1 || mf.Require[0].Mod.Version != "v0.1.0" {
		t.Errorf("unexpected require block %+v", mf.Require)
	}
}

func TestInitMainParses(t *testing.T) {
	out := render(t, "init/main.go.tmpl")
	if _, err := parser.ParseFile(token.NewFileSet(), "main.go", out, parser.AllErrors); err != nil {
		t.Fatalf("rendered main.go does not parse: %v", err)
	}
	if !strings.Contains(out, "root widget of myapp") {
		t.Error("expected app name in main.go")
	}
}

func TestInitConfigValidates(t *testing.T) {
	out := render(t, "init/lattice.yaml.tmpl")
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatalf("rendered lattice.yaml is not YAML: %v", err)
	}
	if _, err := config.Parse([]byte(out)); err != nil {
		t.Fatalf("rendered lattice.yaml is invalid: %v", err)
	}
}

func TestDestName(t *testing.T) {
	if got := DestName("init/go.mod.tmpl"); got != "go.mod" {
		t.Errorf("DestName = %q, want go.mod", got)
	}
}
