package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// suites groups the module's packages so one layer can be tested on its own.
var suites = map[string][]string{
	"engine":   {"./internal/backtesting/...", "./internal/risk/...", "./internal/market/...", "./internal/domain/..."},
	"metrics":  {"./internal/analytics/..."},
	"strategy": {"./internal/strategy/..."},
	"storage":  {"./internal/adapters/...", "./internal/utils/..."},
	"app":      {"./internal/app/...", "./config/...", "./cmd/..."},
	"all":      {"./..."},
}

// options are the go test settings shared by every suite run.
type options struct {
	verbose bool
	short   bool
	race    bool
	cover   bool
	timeout time.Duration
	run     string
}

func main() {
	var opts options
	flag.BoolVar(&opts.verbose, "v", false, "verbose output")
	flag.BoolVar(&opts.short, "short", false, "run only short tests")
	flag.BoolVar(&opts.race, "race", false, "enable the race detector")
	flag.BoolVar(&opts.cover, "cover", false, "report coverage")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "per-suite timeout")
	flag.StringVar(&opts.run, "run", "", "run only tests matching the regular expression")
	suiteList := flag.String("suite", "all", "comma-separated suites: "+strings.Join(suiteNames(), ", "))
	flag.Parse()

	selected, err := selectSuites(*suiteList)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Point storage at a scratch directory so a local .env cannot leak into tests.
	scratch, err := os.MkdirTemp("", "ashare-tests-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating scratch dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(scratch)
	env := append(os.Environ(),
		"DATA_DIR="+scratch+"/bars",
		"DB_PATH="+scratch+"/backtests.db",
		"OUTPUT_DIR="+scratch+"/output",
		"LOG_LEVEL=SILENT",
	)

	failed := 0
	for _, name := range selected {
		args := buildArgs(opts, suites[name])
		fmt.Printf("== %s: go %s\n", name, strings.Join(args, " "))

		started := time.Now()
		cmd := exec.Command("go", args...)
		cmd.Env = env
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		status := "ok"
		if err := cmd.Run(); err != nil {
			status = "FAIL"
			failed++
		}
		fmt.Printf("== %s: %s (%s)\n", name, status, time.Since(started).Round(time.Millisecond))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func buildArgs(opts options, packages []string) []string {
	args := []string{"test"}
	if opts.verbose {
		args = append(args, "-v")
	}
	if opts.short {
		args = append(args, "-short")
	}
	if opts.race {
		args = append(args, "-race")
	}
	if opts.cover {
		args = append(args, "-cover")
	}
	if opts.timeout > 0 {
		args = append(args, "-timeout="+opts.timeout.String())
	}
	if opts.run != "" {
		args = append(args, "-run="+opts.run)
	}
	return append(args, packages...)
}

// selectSuites resolves a comma-separated list, dropping duplicates. "all"
// swallows every other suite.
func selectSuites(list string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		if _, ok := suites[name]; !ok {
			return nil, fmt.Errorf("unknown suite %q (available: %s)", name, strings.Join(suiteNames(), ", "))
		}
		if name == "all" {
			return []string{"all"}, nil
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no suites selected")
	}
	return out, nil
}

func suiteNames() []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
