package protocol

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

const (
	// u32 Count
	missingHdrSize = 4
	// u32 per sequence id
	missingIDSize = 4
	// Sequence ids per RETRANSMIT_MANY frame
	MaxMissingPerFrame = (MaxPayloadSize - missingHdrSize) / missingIDSize
)

// EncodeMissing encodes ascending sequence ids into one or more
// RETRANSMIT_MANY payloads, each fitting a single frame.
func EncodeMissing(ids []int) [][]byte {
	var chunks [][]byte
	for len(ids) > 0 {
		n := len(ids)
		if n > MaxMissingPerFrame {
			n = MaxMissingPerFrame
		}
		buf := make([]byte, missingHdrSize+n*missingIDSize)
		binary.LittleEndian.PutUint32(buf, uint32(n))
		off := missingHdrSize
		for _, id := range ids[:n] {
			binary.LittleEndian.PutUint32(buf[off:], uint32(id))
			off += missingIDSize
		}
		chunks = append(chunks, buf)
		ids = ids[n:]
	}
	return chunks
}

// DecodeMissing parses a RETRANSMIT_MANY payload into sorted, unique ids.
// Payloads that are not a well-formed count-prefixed list are parsed as the
// ';'-delimited text list sent by older peers.
func DecodeMissing(b []byte) ([]int, error) {
	if len(b) >= missingHdrSize {
		count := binary.LittleEndian.Uint32(b)
		if uint64(len(b)) == missingHdrSize+uint64(count)*missingIDSize {
			ids := make([]int, count)
			for i := range ids {
				ids[i] = int(binary.LittleEndian.Uint32(b[missingHdrSize+i*missingIDSize:]))
			}
			return normalizeIDs(ids), nil
		}
	}
	return decodeLegacyMissing(b)
}

func decodeLegacyMissing(b []byte) ([]int, error) {
	var ids []int
	for _, field := range strings.Split(string(b), ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("%w: invalid missing list entry %q", ErrMalformedFrame, field)
		}
		ids = append(ids, id)
	}
	return normalizeIDs(ids), nil
}

func normalizeIDs(ids []int) []int {
	slices.Sort(ids)
	return slices.Compact(ids)
}
