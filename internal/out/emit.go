package out

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ggonzalez94/clob-bridge/internal/model"
)

// Emitter writes one response per line and flushes after every write so the
// parent process sees each response as soon as it is produced.
type Emitter struct {
	w *bufio.Writer
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: bufio.NewWriter(w)}
}

// Emit never fails on an unserializable payload: a minimal failure line is
// written in its place.
func (e *Emitter) Emit(resp model.Response) error {
	line, err := json.Marshal(resp)
	if err != nil {
		line = fallbackLine(err)
	}
	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush response: %w", err)
	}
	return nil
}

func fallbackLine(cause error) []byte {
	msg, _ := json.Marshal("JSON serialization failed: " + cause.Error())
	return []byte(`{"success":false,"error":` + string(msg) + `}`)
}
