package cmd

import (
	"fmt"

	"github.com/go-drift/lattice/cmd/lattice/internal/project"
)

func init() {
	RegisterCommand(&Command{
		Name:  "status",
		Short: "Show project status",
		Long: `Show the current status of the lattice project.

Displays the module path, the lattice version required by go.mod (and
any replace directive), and the engine settings from lattice.yaml.`,
		Usage: "lattice status",
		Run:   runStatus,
	})
}

func runStatus(args []string) error {
	root, err := project.FindProjectRoot(".")
	if err != nil {
		return err
	}

	res, err := project.Resolve(root)
	if err != nil {
		return err
	}

	w := stdout
	fmt.Fprintf(w, "Project: %s (%s)\n", res.Name, res.ModulePath)
	fmt.Fprintf(w, "Root:    %s\n", res.Root)
	fmt.Fprintln(w)

	switch {
	case res.LatticeVersion == "":
		fmt.Fprintf(w, "Lattice: not required by go.mod\n")
	case res.Replaced != "":
		fmt.Fprintf(w, "Lattice: %s => %s\n", res.LatticeVersion, res.Replaced)
	default:
		fmt.Fprintf(w, "Lattice: %s\n", res.LatticeVersion)
	}

	if res.ConfigPath == "" {
		fmt.Fprintf(w, "Config:  defaults (no lattice.yaml)\n")
	} else {
		fmt.Fprintf(w, "Config:  %s\n", res.ConfigPath)
	}

	cfg := res.Config
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Settings:")
	fmt.Fprintf(w, "  %-24s %d\n", "max rebuild iterations:", cfg.Scheduler.MaxRebuildIterations)
	fmt.Fprintf(w, "  %-24s %d (%s)\n", "write queue:", cfg.Scheduler.WriteQueue.Size, cfg.Scheduler.WriteQueue.Policy)
	fmt.Fprintf(w, "  %-24s %d (%s)\n", "result queue:", cfg.Scheduler.ResultQueue.Size, cfg.Scheduler.ResultQueue.Policy)
	fmt.Fprintf(w, "  %-24s %d\n", "workers:", cfg.Scheduler.Workers)
	fmt.Fprintf(w, "  %-24s %dx%d, %d pages\n", "atlas:", cfg.Atlas.MaxSize, cfg.Atlas.MaxSize, cfg.Atlas.MaxPages)
	if cfg.Debug.Addr != "" {
		fmt.Fprintf(w, "  %-24s %s\n", "debug server:", cfg.Debug.Addr)
	}

	return nil
}
