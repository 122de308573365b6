package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var errNotWav = errors.New("not a RIFF/WAVE file")

// pcmData extracts the raw sample payload from a RIFF wav file. The
// synthesis service emits a plain 44-byte header, but files that passed
// through other tools may carry extra chunks (LIST, fact), so the header
// is walked chunk by chunk rather than skipped at a fixed offset.
func pcmData(b []byte) ([]byte, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, errNotWav
	}

	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8
		if size < 0 || off+size > len(b) {
			return nil, fmt.Errorf("truncated %q chunk: need %d bytes, have %d", id, size, len(b)-off)
		}
		if id == "data" {
			return b[off : off+size], nil
		}
		off += size
		// Chunks are word-aligned; odd sizes carry a pad byte.
		if size%2 == 1 {
			off++
		}
	}
	return nil, errors.New("wav file has no data chunk")
}
