// ctest runs scc over a set of sources and compares every run against a
// golden .<file>.json recorded next to the source.
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
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

// Golden is the recorded behaviour of the compiler on one source file.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Runs       []TestRun `json:"runs"`
}

type FileTestResult struct {
	File       string    `json:"file"`
	Status     string    `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message    string    `json:"message,omitempty"`
	Diff       string    `json:"diff,omitempty"`
	SourceHash string    `json:"source_hash,omitempty"`
	ToolHash   string    `json:"tool_hash,omitempty"`
	Runs       []TestRun `json:"runs,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	compiler       = flag.String("compiler", "./scc", "Path to the scc binary under test.")
	compilerArgs   = flag.String("args", "", "Extra arguments passed to every run (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate golden .json files for the given glob pattern(s).")
	testFiles      = flag.String("test-files", "tests/*.c", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	useCache       = flag.Bool("cached", false, "Skip files whose source and compiler are unchanged since the last passing run.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

// runModes are the invocations recorded for every source file.
var runModes = []TestRun{
	{Name: "lex", Args: []string{"--stage=lex"}},
	{Name: "syntax", Args: []string{"--stage=syntax"}},
	{Name: "tokens", Args: []string{"--stage=syntax", "-t"}},
	{Name: "format", Args: []string{"--stage=syntax", "-f"}},
}

// sourcePlaceholder replaces the source path in recorded output so golden
// files do not depend on where the tree is checked out.
const sourcePlaceholder = "__SOURCE__"

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

	if *generateGolden != "" {
		files, err := expandGlobPatterns(*generateGolden)
		if err != nil {
			log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
		}
		for _, file := range files {
			handleGenerateGolden(file)
		}
		return
	}

	if !handleRunTestSuite() {
		os.Exit(1)
	}
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func handleGenerateGolden(sourceFile string) {
	log.Printf("Generating golden file for %s...\n", sourceFile)

	fileHash, err := hashFile(sourceFile)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not hash source file %s: %v\n", cRed, cNone, sourceFile, err)
	}

	golden := Golden{SourceHash: fileHash, Runs: runAll(sourceFile)}
	jsonData, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}

	goldenFileName := getJSONPath(sourceFile)
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
}

// handleRunTestSuite reports whether every file passed or was skipped.
func handleRunTestSuite() bool {
	if _, err := exec.LookPath(*compiler); err != nil {
		log.Fatalf("%s[ERROR]%s Compiler '%s' not found: %v\n", cRed, cNone, *compiler, err)
	}
	toolHash, err := hashFile(resolveCompiler())
	if err != nil {
		log.Printf("%s[WARN]%s Could not hash compiler binary, cache disabled: %v\n", cYellow, cNone, err)
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return true
	}

	previousResults := make(TestSuiteResults)
	if prevData, err := os.ReadFile(reportPath()); err == nil {
		if json.Unmarshal(prevData, &previousResults) != nil {
			log.Printf("%s[WARN]%s Could not parse previous results file %s. Cache will not be used.\n", cYellow, cNone, reportPath())
			previousResults = make(TestSuiteResults)
		}
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	type task struct{ file, hash string }
	tasks := make(chan task, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				r := testFile(t.file, t.hash)
				r.SourceHash, r.ToolHash = t.hash, toolHash
				resultsChan <- r
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		if prev, ok := previousResults[file]; *useCache && ok && toolHash != "" &&
			prev.Status == "PASS" && prev.SourceHash == fileHash && prev.ToolHash == toolHash {
			prev.Message = "Unchanged since last passing run (cached)"
			resultsChan <- prev
			continue
		}
		tasks <- task{file, fileHash}
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	return !hasFailures(writeJSONReport(allResults))
}

func testFile(file, fileHash string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if os.IsNotExist(err) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	if golden.SourceHash != fileHash {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Source changed since the golden file was generated; regenerate it with --generate-golden"}
	}

	runs := runAll(file)
	result := compareRuns(golden.Runs, runs, splitIgnored())
	result.File = file
	result.Runs = runs
	return result
}

func runAll(sourceFile string) []TestRun {
	extra := strings.Fields(*compilerArgs)
	runs := make([]TestRun, 0, len(runModes))
	for _, mode := range runModes {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		args := append(append(append([]string(nil), extra...), mode.Args...), sourceFile)
		exe := executeCommand(ctx, *compiler, args...)
		cancel()
		exe.Stdout = strings.ReplaceAll(exe.Stdout, sourceFile, sourcePlaceholder)
		exe.Stderr = strings.ReplaceAll(exe.Stderr, sourceFile, sourcePlaceholder)
		runs = append(runs, TestRun{Name: mode.Name, Args: mode.Args, Result: exe})
	}
	return runs
}

// compareRuns checks every golden run against the run of the same name.
func compareRuns(golden, target []TestRun, ignored []string) *FileTestResult {
	var diffs strings.Builder
	var failed bool

	targetRuns := make(map[string]TestRun, len(target))
	for _, run := range target {
		targetRuns[run.Name] = run
	}
	for _, ref := range golden {
		got, ok := targetRuns[ref.Name]
		if !ok {
			failed = true
			fmt.Fprintf(&diffs, "Test run '%s' missing in target results.\n", ref.Name)
			continue
		}
		if got.Result.TimedOut {
			failed = true
			fmt.Fprintf(&diffs, "Run '%s' timed out.\n", ref.Name)
			continue
		}
		if ref.Result.ExitCode != got.Result.ExitCode {
			failed = true
			fmt.Fprintf(&diffs, "Run '%s' Exit Code mismatch:\n  - Ref:    %d\n  - Target: %d\n", ref.Name, ref.Result.ExitCode, got.Result.ExitCode)
		}
		if d := cmp.Diff(filterOutput(ref.Result.Stdout, ignored), filterOutput(got.Result.Stdout, ignored)); d != "" {
			failed = true
			fmt.Fprintf(&diffs, "Run '%s' STDOUT mismatch:\n%s", ref.Name, d)
		}
		if d := cmp.Diff(filterOutput(ref.Result.Stderr, ignored), filterOutput(got.Result.Stderr, ignored)); d != "" {
			failed = true
			fmt.Fprintf(&diffs, "Run '%s' STDERR mismatch:\n%s", ref.Name, d)
		}
	}
	if failed {
		return &FileTestResult{Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String()}
	}
	return &FileTestResult{Status: "PASS", Message: fmt.Sprintf("All %d runs match", len(golden))}
}

// executeCommand runs a command under ctx and captures its output. A
// timeout is reported as exit code -1, a failure to start as -2.
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	runErr := cmd.Run()
	exe := Execution{Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		exe.TimedOut, exe.ExitCode = true, -1
	case errors.As(runErr, &exitErr):
		exe.ExitCode = exitErr.ExitCode()
	case runErr != nil:
		exe.ExitCode = -2
		fmt.Fprintf(&stderr, "\nExecution error: %v", runErr)
	}
	exe.Stdout, exe.Stderr = stdout.String(), stderr.String()
	return exe
}

func resolveCompiler() string {
	path, err := exec.LookPath(*compiler)
	if err != nil {
		return *compiler
	}
	return path
}

func splitIgnored() []string {
	if *ignoreLines == "" {
		return nil
	}
	return strings.Split(*ignoreLines, ",")
}

// filterOutput drops every line that contains one of ignored.
func filterOutput(output string, ignored []string) string {
	if len(ignored) == 0 || output == "" {
		return output
	}
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		if !slices.ContainsFunc(ignored, func(sub string) bool { return sub != "" && strings.Contains(line, sub) }) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

var statusColor = map[string]string{
	"PASS":  cGreen,
	"FAIL":  cRed,
	"SKIP":  cYellow,
	"ERROR": cRed,
}

const rule = "----------------------------------------------------------------------"

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	var spent time.Duration

	for _, r := range results {
		counts[r.Status]++
		fmt.Println(rule)
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		fmt.Printf("  [%s%s%s] %s\n", statusColor[r.Status], r.Status, cNone, r.Message)
		if r.Status == "FAIL" && r.Diff != "" {
			fmt.Print(formatDiff(r.Diff))
		}
		for _, run := range r.Runs {
			spent += run.Result.Duration
			if *verbose {
				fmt.Printf("      %-8s exit %d  %s\n", run.Name, run.Result.ExitCode, formatDuration(run.Result.Duration))
			}
		}
	}

	fmt.Println(rule)
	fmt.Printf("%sTest Summary:%s", cBold, cNone)
	for _, status := range []string{"PASS", "FAIL", "SKIP", "ERROR"} {
		fmt.Printf(" %s%d %s%s,", statusColor[status], counts[status], status, cNone)
	}
	fmt.Printf(" %d Total\n", len(results))
	if *verbose && spent > 0 {
		fmt.Printf("Time spent in %s: %s\n", filepath.Base(*compiler), spent)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

// formatDiff indents a cmp.Diff report and colours its removed and added lines.
func formatDiff(diff string) string {
	var sb strings.Builder
	sb.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		color := ""
		switch t := strings.TrimSpace(line); {
		case strings.HasPrefix(t, "-"):
			color = cRed
		case strings.HasPrefix(t, "+"):
			color = cGreen
		}
		fmt.Fprintf(&sb, "    %s%s%s\n", color, line, cNone)
	}
	return sb.String()
}

func reportPath() string {
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, *outputJSON)
	}
	return *outputJSON
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	if err := os.WriteFile(reportPath(), jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, reportPath(), err)
	} else {
		fmt.Printf("Full test report saved to %s\n", reportPath())
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			if seen[file] {
				continue
			}
			if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, file)
				seen[file] = true
			}
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
