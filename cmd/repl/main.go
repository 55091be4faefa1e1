package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"simonwaldherr.de/go/nanoscript/config"
	"simonwaldherr.de/go/nanoscript/interp"
	"simonwaldherr.de/go/nanoscript/lexer"
	"simonwaldherr.de/go/nanoscript/logger"
	"simonwaldherr.de/go/nanoscript/parser"
)

const (
	banner     = "nanoScript REPL. Type :help for commands, :quit or Ctrl-D to exit."
	promptMain = "ns> "
	promptCont = "... "
)

const help = `:help   show this message
:reset  discard all variables and functions
:quit   leave the REPL
Statements run in a persistent global scope; bare expressions echo their value.
`

func main() {
	configPath := flag.String("config", "", "config file (default ./"+config.FileName+" if present)")
	flag.Parse()

	wd, _ := os.Getwd()
	cfg, err := config.Resolve(*configPath, wd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	closer, err := logger.Init(cfg.LoggerConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer closer.Close()

	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if cfg.REPL.History {
		histPath := cfg.HistoryPath()
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			} else {
				logger.Warn("cannot save history", "path", histPath, "error", err)
			}
		}()
	}

	s := newSession(os.Stdout, os.Stderr)
	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			return
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		if s.handle(code) {
			return
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}

// prompter is the part of *liner.State the input loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// readByParseProbe keeps reading lines while the accumulated input is an
// unfinished construct. It returns false at end of input.
func readByParseProbe(p prompter, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		pr := prompt
		if b.Len() > 0 {
			pr = cont
		}
		line, err := p.Prompt(pr)
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// incomplete reports whether src fails only because it ends too early,
// either as a program or as a bare expression.
func incomplete(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), ":") {
		return false
	}
	_, err := parser.ParseSource(src)
	if err == nil {
		return false
	}
	if endsEarly(err) {
		return true
	}
	_, err = parser.ParseExpr(src)
	return err != nil && endsEarly(err)
}

func endsEarly(err error) bool {
	var lerr *lexer.Error
	var perr *parser.Error
	switch {
	case errors.As(err, &lerr):
		return lerr.Incomplete()
	case errors.As(err, &perr):
		return perr.Incomplete()
	}
	return false
}

// session is one REPL conversation with a persistent interpreter.
type session struct {
	vm     *interp.Interpreter
	out    io.Writer
	errOut io.Writer
}

func newSession(out, errOut io.Writer) *session {
	s := &session{out: out, errOut: errOut}
	s.reset()
	return s
}

func (s *session) reset() {
	s.vm = interp.NewInterpreter(interp.WithStdout(s.out), interp.WithLogger(logger.L().With("repl", true)))
}

// handle runs one complete input and reports whether the REPL should exit.
func (s *session) handle(code string) (quit bool) {
	trimmed := strings.TrimSpace(code)
	if strings.HasPrefix(trimmed, ":") {
		switch strings.ToLower(trimmed) {
		case ":quit", ":q":
			return true
		case ":help":
			fmt.Fprint(s.out, help)
		case ":reset":
			s.reset()
			fmt.Fprintln(s.out, "environment cleared")
		default:
			fmt.Fprintf(s.out, "unknown command %s. Type :help for a list.\n", trimmed)
		}
		return false
	}

	v, err := s.eval(code)
	if err != nil {
		fmt.Fprintln(s.errOut, err)
		return false
	}
	if out := interp.ToString(v); out != "" {
		fmt.Fprintln(s.out, out)
	}
	return false
}

// eval echoes the value of a bare expression and otherwise runs code as a
// program in the global scope.
func (s *session) eval(code string) (any, error) {
	if e, err := parser.ParseExpr(code); err == nil {
		return s.vm.EvalExpr(e)
	}
	return s.vm.Run(code)
}
