package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePrefix = "easy-ai/server/internal/"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// forbidden maps a package (and its subpackages) to internal packages it may
// not import. The navigation and agent core stays independent of how a
// process is configured, populated or served.
var forbidden = map[string][]string{
	"geom":      {"spatial", "navgraph", "pathfind", "navtable", "steering", "agent", "scheduler", "config", "scenario", "net", "app"},
	"spatial":   {"navgraph", "pathfind", "navtable", "agent", "scheduler", "config", "scenario", "net", "app"},
	"navgraph":  {"navtable", "agent", "scheduler", "config", "scenario", "net", "app"},
	"pathfind":  {"navtable", "agent", "scheduler", "config", "scenario", "net", "app"},
	"navtable":  {"agent", "scheduler", "config", "scenario", "net", "app"},
	"steering":  {"agent", "scheduler", "config", "scenario", "net", "app"},
	"agent":     {"scheduler", "config", "scenario", "net", "app"},
	"scheduler": {"config", "scenario", "net", "app"},
	"net":       {"config", "scenario", "app"},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	pkgs, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if found := violations(pkgs); len(found) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range found {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
}

func violations(pkgs []packageInfo) []string {
	var found []string
	for _, pkg := range pkgs {
		rules := forbidden[component(pkg.ImportPath)]
		for _, imp := range pkg.Imports {
			target := component(imp)
			for _, rule := range rules {
				if target == rule {
					found = append(found, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	sort.Strings(found)
	return found
}

// component returns the first path element below internal/, or "" for
// imports outside the module.
func component(importPath string) string {
	rest, ok := strings.CutPrefix(importPath, modulePrefix)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}
