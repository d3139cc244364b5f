// Package audio validates uploaded waveform payloads before they are
// relayed to the transcription service.
package audio

import (
	"encoding/binary"
	"fmt"
)

// header offsets within a canonical 44-byte RIFF/WAVE header.
const headerSize = 44

// ValidateWAV checks that data carries a plausible PCM WAV header. It does
// not decode samples; the payload is forwarded upstream as-is.
func ValidateWAV(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("wav data too short: need at least %d bytes, got %d", headerSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid wav: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid wav: missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid wav: missing fmt chunk")
	}

	audioFormat := binary.LittleEndian.Uint16(data[20:22])
	if audioFormat != 1 {
		return fmt.Errorf("unsupported audio format: %d (only PCM is supported)", audioFormat)
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels == 0 {
		return fmt.Errorf("invalid wav: zero channels")
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate == 0 {
		return fmt.Errorf("invalid wav: zero sample rate")
	}

	return nil
}
