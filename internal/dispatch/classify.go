package dispatch

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/chunkcast/chunkcast/internal/transcript"
)

// Classify is a pure function: identical (err, statusCode, body) inputs
// always yield the identical error_kind. statusCode is 0 when no HTTP
// response was received.
func Classify(err error, statusCode int, body string) transcript.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return transcript.ErrorTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return transcript.ErrorTimeout
		}
		return transcript.ErrorNetwork
	}

	switch {
	case statusCode == 429:
		return transcript.ErrorRateLimit
	case statusCode == 500, statusCode == 502, statusCode == 503, statusCode == 504:
		return transcript.ErrorServer
	case statusCode == 401, statusCode == 403:
		return transcript.ErrorAuth
	case statusCode == 400 && mentionsAudioFormat(body):
		return transcript.ErrorInvalidAudio
	case statusCode >= 400 && statusCode < 500:
		return transcript.ErrorUnknown
	case statusCode == 0 && err != nil:
		return transcript.ErrorNetwork
	default:
		return transcript.ErrorUnknown
	}
}

func mentionsAudioFormat(body string) bool {
	lower := strings.ToLower(body)
	for _, term := range []string{"audio", "file", "format"} {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
