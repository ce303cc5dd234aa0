package llm

import "strings"

// RechunkWords re-slices a stream of arbitrary text fragments into word-sized
// deltas, so downstream consumers (history appends, speech synthesis) see one
// word at a time regardless of how the model batched its output.
//
// Fragments are buffered until a space boundary appears; each emitted delta
// is a word with its trailing space, and any remainder is flushed when in
// closes. Concatenating the output reproduces the input byte for byte.
//
// The returned channel is closed after the flush. The caller must drain it.
func RechunkWords(in <-chan string) <-chan string {
	out := make(chan string, 16)
	go func() {
		defer close(out)
		var buf strings.Builder
		for fragment := range in {
			buf.WriteString(fragment)
			pending := buf.String()
			for {
				idx := strings.IndexByte(pending, ' ')
				if idx < 0 {
					break
				}
				out <- pending[:idx+1]
				pending = pending[idx+1:]
			}
			buf.Reset()
			buf.WriteString(pending)
		}
		if buf.Len() > 0 {
			out <- buf.String()
		}
	}()
	return out
}
