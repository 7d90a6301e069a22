package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/roster/internal/config"
	"github.com/hurttlocker/roster/internal/ingest"
	"github.com/hurttlocker/roster/internal/mcp"
	"github.com/hurttlocker/roster/internal/resolve"
	"github.com/hurttlocker/roster/internal/store"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "resolve":
		err = runResolve(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "seed-demo":
		err = runSeedDemo(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "serve-mcp":
		err = runServeMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("roster %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		if hint := suggestCommand(os.Args[1]); hint != "" {
			fmt.Fprintf(os.Stderr, "Did you mean %q?\n", hint)
		}
		fmt.Fprintln(os.Stderr)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the flags shared by every subcommand.
type cliFlags struct {
	dbPath     string
	configPath string
	timing     bool
	jsonOut    bool
	args       []string
}

func parseFlags(args []string) (cliFlags, error) {
	var fl cliFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--db":
			if i+1 >= len(args) {
				return fl, fmt.Errorf("--db requires a path")
			}
			i++
			fl.dbPath = args[i]
		case arg == "--config":
			if i+1 >= len(args) {
				return fl, fmt.Errorf("--config requires a path")
			}
			i++
			fl.configPath = args[i]
		case arg == "--timing" || arg == "-t":
			fl.timing = true
		case arg == "--json":
			fl.jsonOut = true
		case strings.HasPrefix(arg, "-"):
			return fl, fmt.Errorf("unknown flag: %s", arg)
		default:
			fl.args = append(fl.args, arg)
		}
	}
	return fl, nil
}

// openPipeline resolves configuration and opens the directory plus a
// pipeline over it. The caller owns closing the directory.
func openPipeline(fl cliFlags) (*store.SQLiteDirectory, *resolve.Pipeline, error) {
	resolved, err := config.ResolveConfig(config.ResolveOptions{
		ConfigPath: fl.configPath,
		CLIDBPath:  fl.dbPath,
		CLITiming:  fl.timing,
	})
	if err != nil {
		return nil, nil, err
	}

	dir, err := store.Open(store.DirectoryConfig{
		DBPath: resolved.DBPath.Value,
		Schema: resolved.Schema(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening directory: %w", err)
	}

	cfg, err := resolved.PipelineConfig()
	if err != nil {
		dir.Close()
		return nil, nil, err
	}

	return dir, resolve.New(dir, cfg), nil
}

func runResolve(args []string) error {
	fl, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(fl.args) == 0 {
		return fmt.Errorf("usage: roster resolve <name> [--db <path>] [--timing] [--json]")
	}

	dir, pipeline, err := openPipeline(fl)
	if err != nil {
		return err
	}
	defer dir.Close()

	raw := strings.Join(fl.args, " ")
	result, err := pipeline.Resolve(context.Background(), raw)
	if err != nil {
		return err
	}

	if fl.jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printResult(result)
	return nil
}

func runCheck(args []string) error {
	fl, err := parseFlags(args)
	if err != nil {
		return err
	}

	dir, pipeline, err := openPipeline(fl)
	if err != nil {
		return err
	}
	defer dir.Close()

	stats, err := dir.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("roster check — %d records, full-text: %v\n", stats.PersonCount, stats.FullText)
	fmt.Println("Type a name, or 'quit' to exit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("name> ")
		if !scanner.Scan() {
			break
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if l := strings.ToLower(raw); l == "quit" || l == "exit" || l == "q" {
			break
		}

		result, err := pipeline.Resolve(context.Background(), raw)
		if err != nil {
			return err
		}
		printResult(result)
		fmt.Println()
	}
	return scanner.Err()
}

func printResult(r *resolve.Result) {
	switch {
	case r.Exact != nil:
		fmt.Printf("valid: %s (id=%d)\n", r.Exact.Name, r.Exact.ID)
	case r.Auto && r.Best != nil:
		fmt.Printf("corrected (%s):\n", r.Reason)
		fmt.Printf("  input: %s\n", r.Input)
		fmt.Printf("  fixed: %s (id=%d)\n", r.Best.Name, r.Best.ID)
	case len(r.Ranked) > 0:
		fmt.Printf("not confident (%s), suggestions:\n", r.Reason)
		for i, s := range r.Ranked {
			fmt.Printf("  %2d. %s  [score=%.1f]  id=%d\n", i+1, s.Person.Name, s.Score, s.Person.ID)
		}
	default:
		fmt.Println("no candidates found")
	}

	if r.Timing != nil {
		fmt.Printf("retrieval: %s over %d candidates\n", r.Timing.Elapsed, r.CandidateCount)
		for _, s := range r.Timing.Strategies {
			line := fmt.Sprintf("  %-9s %5d rows  %s", s.Strategy, s.Rows, s.Elapsed)
			if s.Err != "" {
				line += "  (contained: " + s.Err + ")"
			}
			fmt.Println(line)
		}
	}
}

func runImport(args []string) error {
	fl, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(fl.args) == 0 {
		return fmt.Errorf("usage: roster import <file.csv|file.json> [--db <path>]")
	}

	dir, _, err := openPipeline(fl)
	if err != nil {
		return err
	}
	defer dir.Close()

	engine := ingest.NewEngine(dir)
	total := &ingest.ImportResult{}

	for _, path := range fl.args {
		fmt.Printf("Importing %s...\n", path)
		result, err := engine.ImportFile(context.Background(), path, ingest.ImportOptions{})
		if err != nil {
			return err
		}
		total.Add(result)
	}

	fmt.Println()
	fmt.Print(ingest.FormatImportResult(total))
	return nil
}

func runSeedDemo(args []string) error {
	fl, err := parseFlags(args)
	if err != nil {
		return err
	}

	dir, _, err := openPipeline(fl)
	if err != nil {
		return err
	}
	defer dir.Close()

	n, err := seedDemo(context.Background(), dir)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d demo records. Try: roster resolve \"jhon smiht\"\n", n)
	return nil
}

func runStats(args []string) error {
	fl, err := parseFlags(args)
	if err != nil {
		return err
	}

	dir, _, err := openPipeline(fl)
	if err != nil {
		return err
	}
	defer dir.Close()

	stats, err := dir.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Records:    %d\n", stats.PersonCount)
	fmt.Printf("Full-text:  %v\n", stats.FullText)
	if stats.DBSizeBytes > 0 {
		fmt.Printf("DB size:    %.1f KB\n", float64(stats.DBSizeBytes)/1024)
	}
	return nil
}

func runServeMCP(args []string) error {
	fl, err := parseFlags(args)
	if err != nil {
		return err
	}

	dir, pipeline, err := openPipeline(fl)
	if err != nil {
		return err
	}
	defer dir.Close()

	s := mcp.NewServer(mcp.ServerConfig{
		Directory: dir,
		Pipeline:  pipeline,
		Version:   version,
	})
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Printf(`roster %s — fuzzy person-name resolution over SQLite

Usage:
  roster <command> [arguments]

Commands:
  resolve <name>      Resolve a name to its best directory match
  check               Interactive resolution loop
  import <file>       Import person records from CSV/TSV or JSON
  seed-demo           Load a small built-in demo directory
  stats               Directory statistics
  serve-mcp           Serve resolution tools over MCP (stdio)
  version             Print version

Flags (all commands):
  --db <path>         Database path (default %s)
  --config <path>     Config file (default ~/.roster/config.yaml)
  --timing, -t        Include per-strategy retrieval timings
  --json              JSON output (resolve only)
`, version, store.DefaultDBPath)
}
