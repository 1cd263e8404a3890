package process

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

var (
	defaultCodec tokenizer.Codec
	codecMu      sync.RWMutex
	initialized  bool
)

// InitTokenizer loads the process-wide codec.
// Supported encodings: "cl100k_base", "o200k_base", "p50k_base", "p50k_edit", "r50k_base".
// Gemini's tokenizer is not public; cl100k_base is used as an approximation
// and is the default when encoding is empty.
func InitTokenizer(encoding string) error {
	var enc tokenizer.Encoding
	switch encoding {
	case "", "cl100k_base":
		enc = tokenizer.Cl100kBase
	case "o200k_base":
		enc = tokenizer.O200kBase
	case "p50k_base":
		enc = tokenizer.P50kBase
	case "p50k_edit":
		enc = tokenizer.P50kEdit
	case "r50k_base":
		enc = tokenizer.R50kBase
	default:
		return fmt.Errorf("unknown token encoding %q", encoding)
	}

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return err
	}

	codecMu.Lock()
	defer codecMu.Unlock()
	defaultCodec = codec
	initialized = true
	return nil
}

// CountTokens returns the token count for text, or -1 when the tokenizer is
// not initialized or encoding fails.
func CountTokens(text string) int {
	codecMu.RLock()
	defer codecMu.RUnlock()

	if !initialized || defaultCodec == nil {
		return -1
	}
	ids, _, err := defaultCodec.Encode(text)
	if err != nil {
		return -1
	}
	return len(ids)
}

// TokenLength is CountTokens with a rune-count fallback, for splitters that
// need a usable length whether or not a codec is loaded
func TokenLength(text string) int {
	if n := CountTokens(text); n >= 0 {
		return n
	}
	return utf8.RuneCountInString(text)
}

// IsInitialized returns whether the tokenizer has been initialized.
func IsInitialized() bool {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return initialized
}

// resetTokenizer drops the loaded codec; tests use it to exercise the fallback
func resetTokenizer() {
	codecMu.Lock()
	defer codecMu.Unlock()
	defaultCodec = nil
	initialized = false
}
