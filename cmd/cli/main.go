package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"simonwaldherr.de/go/nanoscript/config"
	"simonwaldherr.de/go/nanoscript/interp"
	"simonwaldherr.de/go/nanoscript/lexer"
	"simonwaldherr.de/go/nanoscript/logger"
	"simonwaldherr.de/go/nanoscript/parser"
)

const (
	exitOK   = 0
	exitFail = 1 // usage, unreadable file, lex or parse error
	exitEval = 2 // evaluation error or vet findings
)

const usage = `usage: nanoscript [flags] <file.ns>
       nanoscript [flags] run <file.ns>
       nanoscript [flags] fmt [-w] <file.ns>
       nanoscript [flags] vet <file.ns>
       nanoscript [flags] tokens <file.ns>
       nanoscript [flags] check <file.ns>...

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nanoscript", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "config file (default ./"+config.FileName+" if present)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "log format: text or json")
	timeout := fs.Duration("timeout", -1, "wall-clock limit for run (0 disables)")
	if err := fs.Parse(args); err != nil {
		return exitFail
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitFail
	}

	wd, _ := os.Getwd()
	cfg, err := config.Resolve(*configPath, wd)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFail
	}
	if *logLevel != "" {
		if _, err := logger.ParseLevel(*logLevel); err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return exitFail
		}
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *timeout >= 0 {
		cfg.Run.Timeout = *timeout
	}

	lc := cfg.LoggerConfig()
	lc.Output = stderr
	closer, err := logger.Init(lc)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFail
	}
	defer closer.Close()

	c := &cli{cfg: cfg, stdout: stdout, stderr: stderr}
	rest := fs.Args()
	switch rest[0] {
	case "run":
		return c.withOneFile("run", rest[1:], c.runFile)
	case "fmt":
		return c.runFmt(rest[1:])
	case "vet":
		return c.withOneFile("vet", rest[1:], c.runVet)
	case "tokens":
		return c.withOneFile("tokens", rest[1:], c.runTokens)
	case "check":
		if len(rest) < 2 {
			fmt.Fprintln(stderr, "usage: nanoscript check <file.ns>...")
			return exitFail
		}
		return c.runCheck(rest[1:])
	default:
		return c.withOneFile("run", rest, c.runFile)
	}
}

func (c *cli) withOneFile(cmd string, args []string, f func(path string) int) int {
	if len(args) != 1 {
		fmt.Fprintf(c.stderr, "usage: nanoscript %s <file.ns>\n", cmd)
		return exitFail
	}
	return f(args[0])
}

// diagnose renders err as "<file>:<line>:<col>: <Kind>: <message>" and picks
// the exit code for it.
func diagnose(path string, err error) (string, int) {
	var lerr *lexer.Error
	var perr *parser.Error
	var eerr *interp.EvalError
	switch {
	case errors.As(err, &lerr):
		return path + ":" + lerr.Error(), exitFail
	case errors.As(err, &perr):
		return path + ":" + perr.Error(), exitFail
	case errors.As(err, &eerr):
		return path + ":" + eerr.Error(), exitEval
	}
	return path + ": error: " + err.Error(), exitEval
}

func (c *cli) report(path string, err error) int {
	msg, code := diagnose(path, err)
	fmt.Fprintln(c.stderr, msg)
	return code
}

func (c *cli) runFile(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return exitFail
	}
	start := time.Now()
	result, err := RunSafe(string(src), c.cfg.Run.Timeout,
		interp.WithStdout(c.stdout), interp.WithLogger(logger.L().With("file", path)))
	logger.LogRunComplete(path, time.Since(start).String(), err)
	if err != nil {
		return c.report(path, err)
	}
	if s := interp.ToString(result); c.cfg.Run.PrintResult && s != "" {
		fmt.Fprintln(c.stdout, s)
	}
	return exitOK
}

func (c *cli) runFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	write := fs.Bool("w", false, "write result to the source file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return exitFail
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "usage: nanoscript fmt [-w] <file.ns>")
		return exitFail
	}
	path := fs.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return exitFail
	}
	out, err := interp.FormatSource(string(src))
	if err != nil {
		msg, _ := diagnose(path, err)
		fmt.Fprintln(c.stderr, msg)
		return exitFail
	}
	if *write {
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			fmt.Fprintln(c.stderr, "write error:", err)
			return exitFail
		}
		return exitOK
	}
	fmt.Fprint(c.stdout, out)
	return exitOK
}

func (c *cli) runVet(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return exitFail
	}
	issues, err := interp.VetSource(string(src))
	if err != nil {
		return c.report(path, err)
	}
	for _, issue := range issues {
		fmt.Fprintf(c.stderr, "%s:%s\n", path, issue)
	}
	if len(issues) > 0 {
		return exitEval
	}
	return exitOK
}

func (c *cli) runTokens(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return exitFail
	}
	toks, err := lexer.Tokenize(string(src))
	if err != nil {
		return c.report(path, err)
	}
	logger.LogLexing(path, len(toks))
	for _, tok := range toks {
		fmt.Fprintf(c.stdout, "%d:%d\t%s\t%q\n", tok.Line, tok.Col, tok.Kind, tok.Lexeme)
	}
	return exitOK
}

// runCheck lexes and parses every file concurrently and reports each
// failure in argument order.
func (c *cli) runCheck(paths []string) int {
	diags := make([]string, len(paths))
	codes := make([]int, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			diags[i], codes[i] = checkFile(path)
			return nil
		})
	}
	_ = g.Wait()

	code := exitOK
	for i := range paths {
		if diags[i] != "" {
			fmt.Fprintln(c.stderr, diags[i])
		}
		code = max(code, codes[i])
	}
	return code
}

func checkFile(path string) (string, int) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "read error: " + err.Error(), exitFail
	}
	toks, err := lexer.Tokenize(string(src))
	if err != nil {
		return diagnose(path, err)
	}
	logger.LogLexing(path, len(toks))
	prog, err := parser.Parse(toks)
	if err != nil {
		return diagnose(path, err)
	}
	logger.LogParsing(path, len(prog.Stmts))
	return "", exitOK
}

// RunSafe executes untrusted nanoScript source with a context-based
// timeout (zero means none). It recovers from panics so the host
// application is never crashed by user code.
//
// On timeout the interpreter stops at its next loop iteration or call.
// RunSafe waits up to stopGrace for that, so output written after it
// returns is only possible from a single native call running longer.
func RunSafe(source string, timeout time.Duration, opts ...interp.Option) (any, error) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		val any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic recovered: %v", r)}
			}
		}()
		vm := interp.NewInterpreter(append(opts[:len(opts):len(opts)], interp.WithContext(ctx))...)
		v, err := vm.Run(source)
		done <- outcome{v, err}
	}()

	select {
	case out := <-done:
		if errors.Is(out.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("execution timed out after %s", timeout)
		}
		return out.val, out.err
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(stopGrace):
		}
		return nil, fmt.Errorf("execution timed out after %s", timeout)
	}
}

const stopGrace = time.Second
