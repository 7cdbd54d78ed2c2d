// Package main provides the authz command line tool: authorize, validate,
// translate, and format policies, and inspect or watch policy bundles.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/authz-engine/policy-core/internal/bundle"
	"github.com/authz-engine/policy-core/internal/parser"
	"github.com/authz-engine/policy-core/internal/validator"
	"github.com/authz-engine/policy-core/pkg/authz"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "authorize":
		os.Exit(cmdAuthorize(os.Args[2:]))
	case "validate":
		os.Exit(cmdValidate(os.Args[2:]))
	case "translate":
		os.Exit(cmdTranslate(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "bundle":
		os.Exit(cmdBundle(os.Args[2:]))
	case "version":
		fmt.Printf("authz %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "authz: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: authz <command> [flags]

Commands:
  authorize   answer one authorization question
  validate    validate policies against a schema, or a schema alone
  translate   convert a single policy between policy text and JSON
  fmt         print policies in canonical form
  bundle      load a policy bundle directory, optionally watching it
  version     print version information

Run 'authz <command> -h' for flags.
`)
}

// cmdAuthorize answers a single question and prints the decision as JSON.
// Exit code 0 means Allow, 2 means Deny, 1 means the call failed.
func cmdAuthorize(args []string) int {
	fs := flag.NewFlagSet("authorize", flag.ExitOnError)
	var (
		principal = fs.String("principal", "", `principal UID, e.g. User::"alice"`)
		action    = fs.String("action", "", `action UID, e.g. Action::"view"`)
		resource  = fs.String("resource", "", `resource UID, e.g. Photo::"trip.jpg"`)
		ctx       = fs.String("context", "{}", "context JSON object, or @file")
		policies  = fs.String("policies", "", "policy file ('-' for stdin)")
		entities  = fs.String("entities", "", "entity JSON file (optional)")
	)
	fs.Parse(args)

	policyText, err := readInput(*policies)
	if err != nil {
		return fail(err)
	}
	entityJSON := "[]"
	if *entities != "" {
		if entityJSON, err = readInput(*entities); err != nil {
			return fail(err)
		}
	}
	contextJSON := *ctx
	if len(contextJSON) > 0 && contextJSON[0] == '@' {
		if contextJSON, err = readInput(contextJSON[1:]); err != nil {
			return fail(err)
		}
	}

	result, err := authz.IsAuthorized(*principal, *action, *resource, contextJSON, policyText, entityJSON)
	if err != nil {
		return fail(err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fail(err)
	}
	fmt.Println(string(out))

	if result.Decision == "Allow" {
		return 0
	}
	return 2
}

// cmdValidate checks policies against a schema. Without -policies it checks
// the schema document alone. Exit code 1 when validation errors are found.
func cmdValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var (
		schemaPath = fs.String("schema", "", "schema JSON file ('-' for stdin)")
		policies   = fs.String("policies", "", "policy file to validate (optional)")
	)
	fs.Parse(args)

	schemaJSON, err := readInput(*schemaPath)
	if err != nil {
		return fail(err)
	}

	if *policies == "" {
		if err := authz.ValidateSchema(schemaJSON); err != nil {
			return fail(err)
		}
		fmt.Println("no errors or warnings")
		return 0
	}

	policyText, err := readInput(*policies)
	if err != nil {
		return fail(err)
	}
	report, err := authz.Validate(schemaJSON, policyText)
	if err != nil {
		return fail(err)
	}
	fmt.Println(report.String())
	if len(report.ValidationErrors) > 0 {
		return 1
	}
	return 0
}

// cmdTranslate converts one policy between the two representations.
func cmdTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ExitOnError)
	var (
		to   = fs.String("to", "json", "target representation: json or cedar")
		file = fs.String("file", "-", "input file ('-' for stdin)")
	)
	fs.Parse(args)

	src, err := readInput(*file)
	if err != nil {
		return fail(err)
	}

	var out string
	switch *to {
	case "json":
		out, err = authz.PolicyToJSON(src)
	case "cedar":
		out, err = authz.PolicyFromJSON(src)
	default:
		err = fmt.Errorf("unknown target %q (want json or cedar)", *to)
	}
	if err != nil {
		return fail(err)
	}
	fmt.Println(out)
	return 0
}

// cmdFmt parses policies and prints them in canonical single-line form.
func cmdFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	file := fs.String("file", "-", "policy file ('-' for stdin)")
	fs.Parse(args)

	src, err := readInput(*file)
	if err != nil {
		return fail(err)
	}
	set, err := parser.Parse(src)
	if err != nil {
		return fail(err)
	}
	fmt.Println(set.MarshalCedar())
	return 0
}

// cmdBundle loads a bundle directory and prints a summary. With -watch it
// keeps reloading on file changes until interrupted.
func cmdBundle(args []string) int {
	fs := flag.NewFlagSet("bundle", flag.ExitOnError)
	var (
		dir       = fs.String("dir", ".", "bundle directory")
		watch     = fs.Bool("watch", false, "watch the directory and reload on changes")
		logLevel  = fs.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat = fs.String("log-format", "console", "log format (json, console)")
	)
	fs.Parse(args)

	logger, err := initLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	loader := bundle.NewLoader(logger)

	if !*watch {
		b, err := loader.Load(*dir)
		if err != nil {
			return fail(err)
		}
		printBundleSummary(b)
		return 0
	}

	w, err := bundle.NewWatcher(*dir, loader, logger)
	if err != nil {
		return fail(err)
	}
	if err := w.Start(); err != nil {
		return fail(err)
	}
	defer w.Stop()
	printBundleSummary(w.Current())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev := <-w.Events():
			if ev.Err != nil {
				logger.Error("Reload failed", zap.String("event_id", ev.ID), zap.Error(ev.Err))
				continue
			}
			printBundleSummary(ev.Bundle)
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			return 0
		}
	}
}

func printBundleSummary(b *bundle.Bundle) {
	fmt.Printf("bundle %s", b.Manifest.Name)
	if b.Manifest.Version != "" {
		fmt.Printf(" (version %s)", b.Manifest.Version)
	}
	fmt.Printf(": %d policies, %d entities\n", b.Policies.Len(), b.Entities.Len())
	for _, p := range b.Policies.Policies() {
		fmt.Printf("  %s %s\n", p.ID, p.Effect)
	}
	if b.Schema != nil {
		result := validator.New(b.Schema, nil, validator.Options{}).ValidateSet(b.Policies)
		fmt.Println(result.String())
	}
}

// readInput reads a file, or stdin when the path is "-".
func readInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("missing input file")
	}
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "authz: %v\n", err)
	return 1
}

// initLogger initializes the zap logger
func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	return config.Build()
}
