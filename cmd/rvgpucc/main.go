package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/muesli/termenv"
	"github.com/xgo-dev/rvgpu"
	"gopkg.in/yaml.v3"
)

type failItem struct {
	Shader      string   `json:"shader" yaml:"shader"`
	Err         string   `json:"err" yaml:"err"`
	Unsupported []string `json:"unsupported,omitempty" yaml:"unsupported,omitempty"`
}

type opCount struct {
	Op    string `json:"op" yaml:"op"`
	Count int    `json:"count" yaml:"count"`
}

type runReport struct {
	Triple         string     `json:"triple" yaml:"triple"`
	CPU            string     `json:"cpu" yaml:"cpu"`
	Dir            string     `json:"dir" yaml:"dir"`
	Total          int        `json:"total" yaml:"total"`
	Success        int        `json:"success" yaml:"success"`
	Failed         int        `json:"failed" yaml:"failed"`
	Bytes          int        `json:"bytes" yaml:"bytes"`
	Duration       string     `json:"duration" yaml:"duration"`
	UnsupportedOps []opCount  `json:"unsupported_ops,omitempty" yaml:"unsupported_ops,omitempty"`
	Fails          []failItem `json:"fails,omitempty" yaml:"fails,omitempty"`
}

var stderr = termenv.NewOutput(os.Stderr)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		return
	}
	switch cmd {
	case "compile":
		check(runCompile(os.Args[2:]))
	case "llc":
		check(runLLC(os.Args[2:]))
	case "batch":
		os.Exit(runBatch(os.Args[2:]))
	case "watch":
		check(runWatch(os.Args[2:]))
	default:
		if strings.HasPrefix(cmd, "-") {
			check(runCompile(os.Args[1:]))
			return
		}
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  rvgpucc compile -i <file.nir> -o <file.o> [-emit obj|asm|llvm] [-config <file.toml>] [-permissive]")
	fmt.Fprintln(os.Stderr, "  rvgpucc llc -i <file.ll> -o <file.o> [-emit obj|asm]")
	fmt.Fprintln(os.Stderr, "  rvgpucc batch -dir <shader-dir> -out <out-dir> [-j N] [-report <file>] [-format json|yaml] [-keep-going]")
	fmt.Fprintln(os.Stderr, "  rvgpucc watch -i <file.nir> -o <file.o> [-emit obj|asm|llvm] [-config <file.toml>]")
}

// commonFlags registers the flags shared by every subcommand and returns a
// loader for the resulting options.
func commonFlags(fs *flag.FlagSet) func() (rvgpu.Options, error) {
	var (
		config     string
		emit       string
		permissive bool
		verbose    bool
	)
	fs.StringVar(&config, "config", "", "optional TOML config file")
	fs.StringVar(&emit, "emit", "", "artifact kind: obj, asm or llvm (overrides config)")
	fs.BoolVar(&permissive, "permissive", false, "log unhandled intrinsics instead of failing")
	fs.BoolVar(&verbose, "v", false, "debug logging")
	return func() (rvgpu.Options, error) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		rvgpu.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		opt := rvgpu.DefaultOptions()
		if config != "" {
			var err error
			if opt, err = rvgpu.LoadOptions(config); err != nil {
				return opt, err
			}
		}
		if emit != "" {
			if err := opt.Emit.UnmarshalText([]byte(emit)); err != nil {
				return opt, err
			}
		}
		if permissive {
			opt.IntrinsicPolicy = rvgpu.PolicyPermissive
		}
		return opt, nil
	}
}

func runCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var inFile, outFile string
	fs.StringVar(&inFile, "i", "", "input .nir file")
	fs.StringVar(&outFile, "o", "", "output file")
	options := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 0 {
		return fmt.Errorf("unexpected positional args: %s", strings.Join(fs.Args(), " "))
	}
	if strings.TrimSpace(inFile) == "" || strings.TrimSpace(outFile) == "" {
		return fmt.Errorf("compile requires both -i and -o")
	}
	opt, err := options()
	if err != nil {
		return err
	}
	return compileOne(inFile, outFile, opt)
}

func compileOne(inFile, outFile string, opt rvgpu.Options) error {
	obj, err := rvgpu.CompileFile(inFile, opt)
	if err != nil {
		return err
	}
	return writeObject(outFile, obj, opt)
}

func writeObject(outFile string, obj *rvgpu.Object, opt rvgpu.Options) error {
	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(outFile, obj.Data, 0644); err != nil {
		return err
	}
	if opt.KeepIR && opt.Emit != rvgpu.EmitLLVM {
		return os.WriteFile(strings.TrimSuffix(outFile, filepath.Ext(outFile))+".ll", []byte(obj.IR), 0644)
	}
	return nil
}

func runLLC(args []string) error {
	fs := flag.NewFlagSet("llc", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var inFile, outFile string
	fs.StringVar(&inFile, "i", "", "input .ll file")
	fs.StringVar(&outFile, "o", "", "output file")
	options := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(inFile) == "" || strings.TrimSpace(outFile) == "" {
		return fmt.Errorf("llc requires both -i and -o")
	}
	opt, err := options()
	if err != nil {
		return err
	}
	if opt.Emit == rvgpu.EmitLLVM {
		return fmt.Errorf("llc emits obj or asm")
	}
	ir, err := os.ReadFile(inFile)
	if err != nil {
		return err
	}
	obj, err := rvgpu.CompileLLVM(filepath.Base(inFile), string(ir), opt)
	if err != nil {
		return err
	}
	return writeObject(outFile, obj, opt)
}

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		dir       string
		outDir    string
		jobs      int
		reportOut string
		format    string
		keepGoing bool
	)
	fs.StringVar(&dir, "dir", "", "directory searched for .nir files")
	fs.StringVar(&outDir, "out", "", "output directory")
	fs.IntVar(&jobs, "j", 0, "parallel workers (0 means config or GOMAXPROCS)")
	fs.StringVar(&reportOut, "report", "", "optional report path")
	fs.StringVar(&format, "format", "json", "report format: json or yaml")
	fs.BoolVar(&keepGoing, "keep-going", true, "write every object even if some shaders fail")
	options := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dir == "" || outDir == "" {
		fatalf("batch requires both -dir and -out")
	}
	if format != "json" && format != "yaml" {
		fatalf("unknown report format %q", format)
	}
	opt, err := options()
	check(err)
	if jobs > 0 {
		opt.Jobs = jobs
	}

	files, err := findShaders(dir)
	check(err)
	batch := make([]rvgpu.Job, len(files))
	for i, f := range files {
		batch[i] = rvgpu.Job{Name: f, Path: filepath.Join(dir, f)}
	}

	start := time.Now()
	results, err := rvgpu.CompileAll(context.Background(), batch, opt)
	check(err)

	rep := runReport{
		Triple: opt.Target.Triple,
		CPU:    opt.Target.CPU,
		Dir:    dir,
		Total:  len(results),
	}
	unsupportedAgg := map[string]int{}
	anyFailed := false
	for _, r := range results {
		if r.Err != nil {
			anyFailed = true
			continue
		}
		for _, op := range r.Object.Stats.Unsupported {
			unsupportedAgg[op]++
		}
	}
	for idx, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s %s\n", idx+1, len(results), status(false), r.Job.Name)
			printFailureReason(r.Err.Error())
			rep.Failed++
			rep.Fails = append(rep.Fails, failItem{Shader: r.Job.Name, Err: r.Err.Error()})
			continue
		}
		if anyFailed && !keepGoing {
			continue
		}
		out := filepath.Join(outDir, strings.TrimSuffix(r.Job.Name, ".nir")+objectExt(opt.Emit))
		if err := writeObject(out, r.Object, opt); err != nil {
			fatalf("%s: %v", out, err)
		}
		fmt.Fprintf(os.Stderr, "[%d/%d] %s %s\n", idx+1, len(results), status(true), r.Job.Name)
		rep.Success++
		rep.Bytes += len(r.Object.Data)
		if len(r.Object.Stats.Unsupported) > 0 {
			rep.Fails = append(rep.Fails, failItem{Shader: r.Job.Name, Unsupported: r.Object.Stats.Unsupported})
		}
	}
	rep.Duration = time.Since(start).Round(time.Millisecond).String()
	rep.UnsupportedOps = flattenUnsupportedAgg(unsupportedAgg)

	fmt.Fprintf(os.Stderr, "\n%d/%d shaders compiled in %s\n", rep.Success, rep.Total, rep.Duration)
	if reportOut != "" {
		check(writeReport(reportOut, format, rep))
	}
	if rep.Failed != 0 {
		return 1
	}
	return 0
}

// findShaders returns the .nir files under dir, relative to dir and sorted.
func findShaders(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".nir" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .nir files under %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var inFile, outFile string
	fs.StringVar(&inFile, "i", "", "input .nir file")
	fs.StringVar(&outFile, "o", "", "output file")
	options := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(inFile) == "" || strings.TrimSpace(outFile) == "" {
		return fmt.Errorf("watch requires both -i and -o")
	}
	opt, err := options()
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Editors replace files on save, so watch the directory.
	if err := w.Add(filepath.Dir(inFile)); err != nil {
		return err
	}
	target := filepath.Clean(inFile)

	rebuild := func() {
		if err := compileOne(inFile, outFile, opt); err != nil {
			fmt.Fprintf(os.Stderr, "%s %s\n", status(false), inFile)
			printFailureReason(err.Error())
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s -> %s\n", status(true), inFile, outFile)
	}
	rebuild()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				rebuild()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func objectExt(k rvgpu.EmitKind) string {
	switch k {
	case rvgpu.EmitAssembly:
		return ".s"
	case rvgpu.EmitLLVM:
		return ".ll"
	}
	return ".o"
}

func status(ok bool) string {
	if ok {
		return stderr.String("OK  ").Foreground(termenv.ANSIGreen).String()
	}
	return stderr.String("FAIL").Foreground(termenv.ANSIRed).Bold().String()
}

func writeReport(path, format string, rep runReport) error {
	var (
		data []byte
		err  error
	)
	if format == "yaml" {
		data, err = yaml.Marshal(rep)
	} else {
		data, err = json.MarshalIndent(rep, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func flattenUnsupportedAgg(agg map[string]int) []opCount {
	if len(agg) == 0 {
		return nil
	}
	out := make([]opCount, 0, len(agg))
	for op, n := range agg {
		out = append(out, opCount{Op: op, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Op < out[j].Op
	})
	return out
}

func printFailureReason(err string) {
	lines := strings.Split(strings.TrimSpace(err), "\n")
	for _, l := range lines {
		fmt.Fprintf(os.Stderr, "    %s\n", l)
	}
}

func check(err error) {
	if err == nil {
		return
	}
	var ferr *fs.PathError
	if errors.As(err, &ferr) {
		fatalf("%s: %v", ferr.Path, ferr.Err)
	}
	fatalf("%v", err)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
