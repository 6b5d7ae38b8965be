package mpv

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// The control protocol is newline-delimited JSON in both directions.
// Outbound messages are {"command":[...]}; the codec provides the string
// escaping load URLs need. Inbound messages are asynchronous events; the
// only one with behavioral significance is end-file with reason "eof".

type command struct {
	Command []any `json:"command"`
}

func encodeCommand(args ...any) ([]byte, error) {
	data, err := json.Marshal(command{Command: args})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode command")
	}
	return append(data, '\n'), nil
}

type event struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

const (
	eventEndFile = "end-file"
	reasonEOF    = "eof"
)

// eventBuffer reassembles newline-delimited events across partial reads.
type eventBuffer struct {
	partial []byte
}

// feed appends raw bytes and reports whether any complete event signals a
// genuine end of file. Reasons "stop" (explicit stop) and "error" (failed
// load) never count; lines that do not decode are skipped.
func (b *eventBuffer) feed(data []byte) bool {
	b.partial = append(b.partial, data...)

	ended := false
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		line := b.partial[:i]
		b.partial = b.partial[i+1:]

		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if ev.Event == eventEndFile && ev.Reason == reasonEOF {
			ended = true
		}
	}
	return ended
}

func (b *eventBuffer) reset() {
	b.partial = nil
}
