package bridge

import (
	"bufio"
	"context"
	"errors"
	"io"
	"unicode/utf8"
)

// maxReadErrors bounds how often the same read error may repeat before the
// input is treated as closed.
const maxReadErrors = 3

type readResult struct {
	line string
	err  error
}

// Serve reads one command per line from r until exit/quit, end of input or
// ctx cancellation. Commands run strictly one at a time: the next line is read
// only after the previous response has been flushed. Cancellation is honored
// while a read is blocked.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader) error {
	want := make(chan struct{})
	reads := make(chan readResult)
	stopped := make(chan struct{})
	defer close(stopped)
	go readLines(bufio.NewReader(r), want, reads, stopped)

	var (
		lastErr string
		repeats int
	)
	for {
		if ctx.Err() != nil {
			d.log.Info().Msg("context cancelled, stopping")
			return nil
		}
		var res readResult
		select {
		case want <- struct{}{}:
		case <-ctx.Done():
			d.log.Info().Msg("context cancelled, stopping")
			return nil
		}
		select {
		case res = <-reads:
		case <-ctx.Done():
			d.log.Info().Msg("context cancelled while waiting for input, stopping")
			return nil
		}

		if res.line != "" {
			if !utf8.ValidString(res.line) {
				d.log.Error().Msg("failed to read stdin: line is not valid UTF-8")
			} else {
				stop, emitErr := d.Dispatch(ctx, res.line)
				if emitErr != nil {
					return emitErr
				}
				if stop {
					return nil
				}
			}
		}
		if res.err == nil {
			lastErr, repeats = "", 0
			continue
		}
		if errors.Is(res.err, io.EOF) {
			d.log.Info().Msg("input closed, shutting down")
			return nil
		}
		d.log.Error().Err(res.err).Msg("failed to read stdin")
		if res.err.Error() == lastErr {
			repeats++
		} else {
			lastErr, repeats = res.err.Error(), 1
		}
		if repeats >= maxReadErrors {
			d.log.Error().Int("attempts", repeats).Msg("input stream keeps failing, shutting down")
			return nil
		}
	}
}

// readLines performs one read per request on want. A read still blocked when
// Serve returns is abandoned; its result is dropped once stopped is closed.
func readLines(reader *bufio.Reader, want <-chan struct{}, out chan<- readResult, stopped <-chan struct{}) {
	for {
		select {
		case <-want:
		case <-stopped:
			return
		}
		line, err := reader.ReadString('\n')
		select {
		case out <- readResult{line: line, err: err}:
		case <-stopped:
			return
		}
	}
}
