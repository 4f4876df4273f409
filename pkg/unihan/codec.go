/*
Package unihan packs per-character metadata into fixed 4-byte records.

Each CJK code point carries its Kangxi radical, the stroke count of that
radical within the character, the total stroke count, and a simplified-form
flag. The byte layout is versionless and bit-exact; stores written with one
build of this package must decode with any other, so any layout change means
a full dictionary rebuild.

Layout:

	byte 0  radical       (1..214, the Kangxi radicals)
	byte 1  radicalStroke (strokes within the radical)
	byte 2  totalStroke   (0..58, heaviest known char)
	byte 3  bit 0 = simplified flag, bits 1..7 reserved zero
*/
package unihan

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RecordSize is the exact length of an encoded entry.
const RecordSize = 4

const (
	// MaxRadical is the count of Kangxi radicals.
	MaxRadical = 214
	// MaxTotalStroke is the stroke count of the most complex codified char.
	MaxTotalStroke = 58
)

var (
	// ErrFieldRange reports an entry whose fields fall outside the packable domain.
	ErrFieldRange = errors.New("unihan: field out of range")
	// ErrBadRecord reports a stored record that is not exactly RecordSize bytes.
	ErrBadRecord = errors.New("unihan: malformed record")
)

// Entry is the decoded per-character metadata. Entries are built once by the
// offline dictionary builders and read-only afterwards.
type Entry struct {
	Radical       uint8
	RadicalStroke uint8
	TotalStroke   uint8
	Simplified    bool
}

// Encode packs e into its 4-byte wire form.
func Encode(e Entry) ([]byte, error) {
	if e.Radical < 1 || e.Radical > MaxRadical {
		return nil, fmt.Errorf("%w: radical %d not in [1,%d]", ErrFieldRange, e.Radical, MaxRadical)
	}
	if e.TotalStroke > MaxTotalStroke {
		return nil, fmt.Errorf("%w: total stroke %d exceeds %d", ErrFieldRange, e.TotalStroke, MaxTotalStroke)
	}
	if e.RadicalStroke > e.TotalStroke {
		return nil, fmt.Errorf("%w: radical stroke %d exceeds total stroke %d", ErrFieldRange, e.RadicalStroke, e.TotalStroke)
	}

	rec := []byte{e.Radical, e.RadicalStroke, e.TotalStroke, 0}
	if e.Simplified {
		rec[3] = 1
	}
	return rec, nil
}

// Decode is the inverse of Encode. It rejects records of the wrong length;
// anything else is trusted, since records only enter stores through Encode.
func Decode(rec []byte) (Entry, error) {
	if len(rec) != RecordSize {
		return Entry{}, fmt.Errorf("%w: got %d bytes, want %d", ErrBadRecord, len(rec), RecordSize)
	}
	return Entry{
		Radical:       rec[0],
		RadicalStroke: rec[1],
		TotalStroke:   rec[2],
		Simplified:    rec[3]&1 == 1,
	}, nil
}

// Key derives the store lookup key for a Unicode scalar value. Big-endian
// keeps the key length fixed and distinct code points map to distinct keys.
func Key(cp uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, cp)
	return key
}
