// runtime/linewriter.go
package runtime

import (
	"bytes"
	"sync"
)

// LineWriter is an io.Writer that hands every completed line to Emit,
// without the trailing newline. A partial line is held until Flush.
type LineWriter struct {
	Emit func(line string)

	mu  sync.Mutex
	buf bytes.Buffer
}

func NewLineWriter(emit func(line string)) *LineWriter {
	return &LineWriter{Emit: emit}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.Emit(line[:len(line)-1])
	}
	return len(p), nil
}

// Flush emits any pending partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.Emit(w.buf.String())
		w.buf.Reset()
	}
}
