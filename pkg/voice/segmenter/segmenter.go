// Package segmenter splits streaming model output into complete sentences so
// synthesis can start before the full reply has arrived.
package segmenter

// Split extracts complete sentences from buffer and returns them together
// with the unterminated remainder. A sentence ends at a run of terminators
// (. ! ?) followed by whitespace; a terminator at the very end of the buffer
// is kept in the remainder because more terminators may still stream in
// (e.g. "..." arriving one rune at a time).
//
// Concatenating the returned sentences with the remainder reproduces the
// input exactly. Callers trim for display; Split never drops bytes.
func Split(buffer string) ([]string, string) {
	var sentences []string
	runes := []rune(buffer)
	start := 0
	i := 0

	for i < len(runes) {
		if !isTerminator(runes[i]) {
			i++
			continue
		}

		// Consume the whole terminator run ("...", "?!", etc).
		for i < len(runes) && isTerminator(runes[i]) {
			i++
		}

		if i >= len(runes) {
			// Run touches the end of the buffer; hold it back.
			break
		}

		if !isWhitespace(runes[i]) {
			// Mid-token punctuation such as "3.14" or "e.g.x".
			continue
		}

		// Trailing whitespace belongs to the sentence so reassembly
		// stays lossless.
		for i < len(runes) && isWhitespace(runes[i]) {
			i++
		}

		sentences = append(sentences, string(runes[start:i]))
		start = i
	}

	return sentences, string(runes[start:])
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
