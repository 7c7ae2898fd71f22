// gtest runs the compiler over testdata manifests and compares what it prints
// with the golden .<name>.json file stored next to each manifest.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mattn/go-shellwords"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Golden  *Execution `json:"golden,omitempty"`
	Target  *Execution `json:"target,omitempty"`
}

var (
	compiler   = flag.String("compiler", "./pcgk", "Path to the compiler to test.")
	args       = flag.String("args", "--format json -o -", "Arguments passed before each manifest (shell quoted).")
	testFiles  = flag.String("test-files", "testdata/*.toml testdata/*.yaml", "Glob pattern(s) for manifests to test (space-separated).")
	skipFiles  = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout    = flag.Duration("timeout", 10*time.Second, "Timeout for each compiler run.")
	jobs       = flag.Int("j", 4, "Number of parallel test jobs.")
	update     = flag.Bool("update", false, "Rewrite golden files from the current compiler output.")
	verbose    = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir    = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to the manifest dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	compilerArgs, err := shellwords.Parse(*args)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid --args %q: %v\n", cRed, cNone, *args, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results := runSuite(ctx, files, compilerArgs)
	printSummary(results)
	writeJSONReport(results)
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func runSuite(ctx context.Context, files, compilerArgs []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(ctx, file, compilerArgs)
			}
		}()
	}

	// Identical manifests would only repeat the same run.
	seenHashes := make(map[uint64]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		h, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if original, seen := seenHashes[h]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seenHashes[h] = file
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var all []*FileTestResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all
}

func goldenPath(file string) string {
	name := "." + strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, name)
	}
	return filepath.Join(filepath.Dir(file), name)
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func testFile(ctx context.Context, file string, compilerArgs []string) *FileTestResult {
	target := execute(ctx, *compiler, append(append([]string(nil), compilerArgs...), file))
	golden := goldenPath(file)

	if *update {
		if err := writeGolden(golden, target); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Golden file updated", Target: &target}
	}

	data, err := os.ReadFile(golden)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file, run with --update to create " + golden}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", golden, err)}
	}
	var want Execution
	if err := json.Unmarshal(data, &want); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", golden, err)}
	}

	if target.TimedOut {
		return &FileTestResult{File: file, Status: "FAIL", Message: fmt.Sprintf("Compiler timed out after %v", *timeout), Golden: &want, Target: &target}
	}
	if diff := cmp.Diff(want, target, cmpopts.IgnoreFields(Execution{}, "Duration")); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output differs from golden file", Diff: diff, Golden: &want, Target: &target}
	}
	if *verbose {
		log.Printf("[%s] matched %s in %v", file, golden, target.Duration)
	}
	return &FileTestResult{File: file, Status: "PASS", Golden: &want, Target: &target}
}

func execute(ctx context.Context, name string, argv []string) Execution {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, argv...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	cmd.Env = append(os.Environ(), "NO_COLOR=1", "TERM=dumb")

	start := time.Now()
	err := cmd.Run()
	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut, res.ExitCode = true, -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.Stderr += err.Error()
		res.ExitCode = -1
	}
	return res
}

func writeGolden(path string, res Execution) error {
	res.Duration = 0
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal golden data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func expandGlobPatterns(patterns string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "SKIP":
			color = cYellow
		}
		fmt.Printf("%s[%s]%s %s", color, r.Status, cNone, r.File)
		if r.Message != "" {
			fmt.Printf(" - %s", r.Message)
		}
		fmt.Println()
		if r.Diff != "" {
			fmt.Printf("%s%s%s\n", cCyan, r.Diff, cNone)
		}
	}
	fmt.Printf("\n%s%d passed, %d failed, %d errors, %d skipped%s\n", cBold, counts["PASS"], counts["FAIL"], counts["ERROR"], counts["SKIP"], cNone)
}

func writeJSONReport(results []*FileTestResult) {
	report := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		report[r.File] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("%s[WARN]%s Failed to marshal test report: %v\n", cYellow, cNone, err)
		return
	}
	out := *outputJSON
	if *jsonDir != "" {
		out = filepath.Join(*jsonDir, out)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		log.Printf("%s[WARN]%s Failed to write test report %s: %v\n", cYellow, cNone, out, err)
	}
}
