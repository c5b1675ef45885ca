package terminal

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
)

// pump forwards a session's output to the sink until the pty closes.
type pump struct {
	id       string
	src      io.Reader
	bufSize  int
	activity *activity
	sink     EventSink
	now      func() time.Time
	metrics  *monitoring.Metrics
}

// run reads until end of stream. It returns nil when the shell side closed
// or the master was closed, and the read error otherwise.
func (p *pump) run() error {
	// Invalid UTF-8 becomes U+FFFD; split runes carry over to the next read
	r := transform.NewReader(endOfStream{p.src}, unicode.UTF8.NewDecoder())
	buf := make([]byte, p.bufSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.activity.touch(p.now())
			p.metrics.AddTerminalBytes("out", n)
			p.sink.Emit(outputEvent(p.id, string(buf[:n])))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// endOfStream reports every normal way a pty read ends as io.EOF, so the
// decoder flushes any trailing partial rune.
type endOfStream struct {
	r io.Reader
}

func (e endOfStream) Read(b []byte) (int, error) {
	n, err := e.r.Read(b)
	if err != nil && isEndOfStream(err) {
		err = io.EOF
	}
	return n, err
}

// On Linux a master read fails with EIO once the subordinate side is gone.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EIO)
}
