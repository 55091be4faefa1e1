package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/nanoscript/interp"
	"simonwaldherr.de/go/nanoscript/parser"
)

func TestRunSafeHelloWorld(t *testing.T) {
	var out bytes.Buffer
	_, err := RunSafe(`println "hello"`, 5*time.Second, interp.WithStdout(&out))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())
}

func TestRunSafePanicRecovery(t *testing.T) {
	boom := func(vm *interp.Interpreter) {
		vm.RegisterNative("boom", func(args []any) (any, error) { panic("kaboom") })
	}
	_, err := RunSafe("boom()", 5*time.Second, boom)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRunSafeTimeout(t *testing.T) {
	_, err := RunSafe("while true do end", 100*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func TestRunSafeTimeoutStopsOutput(t *testing.T) {
	var out lockedBuffer
	_, err := RunSafe("while true do print 'x' end", 50*time.Millisecond, interp.WithStdout(&out))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	n := out.Len()
	assert.Positive(t, n)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, out.Len(), "script kept writing after RunSafe returned")
}

func TestRunSafeWithoutTimeout(t *testing.T) {
	v, err := RunSafe("ret 1 + 1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestRunSafeSyntaxError(t *testing.T) {
	_, err := RunSafe("if x then", 5*time.Second)
	var perr *parser.Error
	require.True(t, errors.As(err, &perr), "got %v", err)
}

// ---------- command helpers ----------

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "nanoscript_*.ns")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()
	return f.Name()
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunExitCodes(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		code   int
		stdout string
		stderr string
	}{
		{"ok", "println 1 + 1", 0, "2\n", ""},
		{"result printed", "ret 6 * 7", 0, "42\n", ""},
		{"none result not printed", "x := 1", 0, "", ""},
		{"lex error", `print "abc`, 1, "", ":1:7: LexError: unterminated string"},
		{"parse error", "if x then", 1, "", ":1:10: ParseError: "},
		{"eval error", "println 1 + 'a'", 2, "", ":1:11: EvalError: TypeMismatch: "},
		{"output before eval error", "println 'a'\nf()", 2, "a\n", ":2:1: EvalError: UndefinedFunction: undefined function f"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeTempFile(t, c.src)
			code, stdout, stderr := runCLI(path)
			assert.Equal(t, c.code, code)
			assert.Equal(t, c.stdout, stdout)
			if c.stderr == "" {
				assert.Empty(t, stderr)
			} else {
				assert.Contains(t, stderr, path+c.stderr)
			}
		})
	}
}

func TestRunSubcommandRouting(t *testing.T) {
	path := writeTempFile(t, "println 'routed'")
	code, stdout, _ := runCLI("run", path)
	assert.Equal(t, 0, code)
	assert.Equal(t, "routed\n", stdout)
}

func TestUsageErrors(t *testing.T) {
	code, _, stderr := runCLI()
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "usage:")

	code, _, _ = runCLI("-no-such-flag", "x.ns")
	assert.Equal(t, 1, code)

	code, _, stderr = runCLI(filepath.Join(t.TempDir(), "missing.ns"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "read error")

	code, _, _ = runCLI("vet")
	assert.Equal(t, 1, code)

	code, _, stderr = runCLI("-log-level", "loud", "x.ns")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown level")
}

func TestRunFmtFile(t *testing.T) {
	path := writeTempFile(t, "x:=1\nif x then println x end\n")
	code, stdout, _ := runCLI("fmt", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "x := 1\nif x then\n  println x\nend\n", stdout)

	code, stdout, _ = runCLI("fmt", "-w", path)
	require.Equal(t, 0, code)
	assert.Empty(t, stdout)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x := 1\nif x then\n  println x\nend\n", string(data))
}

func TestRunFmtRejectsBrokenSource(t *testing.T) {
	path := writeTempFile(t, "print (1")
	code, _, stderr := runCLI("fmt", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ParseError")
}

func TestRunVetFile(t *testing.T) {
	clean := writeTempFile(t, "func f(a) ret a end\nprintln f(1)\n")
	code, _, stderr := runCLI("vet", clean)
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)

	dirty := writeTempFile(t, "x := 1\nx := x\nprintln g()\n")
	code, _, stderr = runCLI("vet", dirty)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, dirty+":2:1: self-assignment: x := x has no effect")
	assert.Contains(t, stderr, dirty+":3:9: call to undeclared function g")
}

func TestRunTokens(t *testing.T) {
	path := writeTempFile(t, "print 'hi'")
	code, stdout, _ := runCLI("tokens", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "1:1\tprint\t\"print\"\n1:7\tstring\t\"'hi'\"\n1:11\tEOF\t\"\"\n", stdout)
}

func TestRunCheck(t *testing.T) {
	good := writeTempFile(t, "println 1")
	bad := writeTempFile(t, "if x then")
	lexBad := writeTempFile(t, "x = 1")
	code, _, stderr := runCLI("check", good, bad, lexBad)
	assert.Equal(t, 1, code)
	assert.NotContains(t, stderr, good)
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], bad+":"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], lexBad+":1:3: LexError"), lines[1])

	code, _, stderr = runCLI("check", good)
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ns.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("run:\n  print_result: false\n  timeout: 100ms\n"), 0o644))

	path := writeTempFile(t, "ret 5")
	code, stdout, _ := runCLI("-config", cfgPath, path)
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)

	loop := writeTempFile(t, "while true do end")
	code, _, stderr := runCLI("-config", cfgPath, loop)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "timed out after 100ms")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("nope: 1\n"), 0o644))
	code, _, stderr = runCLI("-config", bad, path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "nope")
}

func TestDebugLogging(t *testing.T) {
	path := writeTempFile(t, "func f() ret 1 end\nf()")
	code, _, stderr := runCLI("-log-level", "debug", "-log-format", "json", path)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, `"msg":"call"`)
	assert.Contains(t, stderr, `"func":"f"`)
	assert.Contains(t, stderr, `"msg":"run complete"`)
}

// Every sample must run cleanly and pass vet; samples with a .out file must
// reproduce it exactly.
func TestSamples(t *testing.T) {
	samples, err := filepath.Glob(filepath.Join("..", "..", "samples", "*.ns"))
	require.NoError(t, err)
	require.NotEmpty(t, samples)
	for _, path := range samples {
		t.Run(filepath.Base(path), func(t *testing.T) {
			code, stdout, stderr := runCLI("-timeout", "30s", path)
			require.Equal(t, 0, code, stderr)

			want, err := os.ReadFile(strings.TrimSuffix(path, ".ns") + ".out")
			if err == nil {
				assert.Equal(t, string(want), stdout)
			} else {
				assert.NotEmpty(t, stdout)
			}

			code, _, stderr = runCLI("vet", path)
			assert.Equal(t, 0, code, stderr)
			code, _, stderr = runCLI("check", path)
			assert.Equal(t, 0, code, stderr)
		})
	}
}

func TestMandelbrotShape(t *testing.T) {
	code, stdout, stderr := runCLI(filepath.Join("..", "..", "samples", "mandelbrot.ns"))
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 40)
	assert.True(t, strings.HasSuffix(lines[0], "300"), lines[0])
	assert.True(t, strings.HasSuffix(lines[39], "-285"), lines[39])
	assert.Contains(t, stdout, "@")
}
