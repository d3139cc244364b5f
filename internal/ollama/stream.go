package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// EndOfTurn is the sentinel the model emits to mark the end of its reply.
// Accumulation stops the moment a chunk's content contains it; the sentinel
// itself is never part of the returned text.
const EndOfTurn = "<|im_end|>"

// MalformedChunkError reports a stream line that could not be decoded as a
// chat chunk. It aborts the turn; there is no recovery.
type MalformedChunkError struct {
	Line  string
	Cause error
}

func (e *MalformedChunkError) Error() string {
	return "malformed stream chunk: " + e.Cause.Error()
}

func (e *MalformedChunkError) Unwrap() error { return e.Cause }

// IsMalformedChunk reports whether err came from an undecodable chunk.
func IsMalformedChunk(err error) bool {
	var me *MalformedChunkError
	return errors.As(err, &me)
}

// chunk is one newline-delimited JSON object of the chat stream.
type chunk struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// readStream consumes newline-delimited JSON chunks from r, appending each
// chunk's message content to an accumulator. Every append publishes the
// accumulated snapshot through onPartial, which makes the stream of
// partials prefix-monotonic by construction.
func readStream(ctx context.Context, r io.Reader, onPartial func(string)) (string, error) {
	br := bufio.NewReader(r)
	var acc strings.Builder

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		line, err := br.ReadBytes('\n')
		if len(line) > 0 && len(strings.TrimSpace(string(line))) > 0 {
			var ck chunk
			if uerr := json.Unmarshal(line, &ck); uerr != nil {
				return "", &MalformedChunkError{Line: string(line), Cause: uerr}
			}

			if strings.Contains(ck.Message.Content, EndOfTurn) {
				return strings.TrimSpace(acc.String()), nil
			}

			acc.WriteString(ck.Message.Content)
			if onPartial != nil {
				onPartial(acc.String())
			}

			if ck.Done {
				return strings.TrimSpace(acc.String()), nil
			}
		}

		if err != nil {
			if err == io.EOF {
				return strings.TrimSpace(acc.String()), nil
			}
			return "", &UpstreamError{Cause: err}
		}
	}
}
