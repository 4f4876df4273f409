package dict

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/keylex/keylex/pkg/unihan"
)

// Offline builders. These run once, at dictionary build time, and populate a
// store with entries the runtime lookups can read back. They take the target
// store and input paths as plain parameters; nothing here touches process
// globals or fixed install locations.

// scannerBufSize bounds a single input line; corpus-derived word lists can
// carry very long definition fields.
const scannerBufSize = 4 * 1024 * 1024

// BuildFromWordLists ingests plain-text word lists into s. Each line is
// either "word<TAB>definition" or a bare "word" (empty definition). Blank
// lines and #-comments are skipped. Later files win on duplicate words.
// Returns the number of entries written.
func BuildFromWordLists(s *Store, paths []string) (int, error) {
	total := 0
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return total, fmt.Errorf("dict: build from %s: %w", path, err)
		}

		n, err := buildFromWordList(s, f)
		f.Close()
		if err != nil {
			return total, fmt.Errorf("dict: build from %s: %w", path, err)
		}

		log.Debugf("Ingested %d words from %s", n, path)
		total += n
	}
	return total, nil
}

func buildFromWordList(s *Store, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), scannerBufSize)

	batch := new(leveldb.Batch)
	count := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		word, definition, _ := strings.Cut(line, "\t")
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}

		batch.Put([]byte(word), []byte(strings.TrimSpace(definition)))
		count++
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}

	if err := s.write(batch); err != nil {
		return 0, err
	}
	return count, nil
}

// BuildFromUnihanCSV ingests per-character metadata into s. Rows are
// "codepoint,radical,radicalStroke,totalStroke,simplified" with the code
// point in hex, an optional U+ prefix, and simplified as 0/1 or true/false.
// A leading header row is skipped. Every row is packed through the record
// codec, so out-of-range fields fail the build with the offending row number.
// Returns the number of records written.
func BuildFromUnihanCSV(s *Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("dict: build unihan from %s: %w", path, err)
	}
	defer f.Close()

	n, err := buildFromUnihanCSV(s, f)
	if err != nil {
		return 0, fmt.Errorf("dict: build unihan from %s: %w", path, err)
	}

	log.Debugf("Ingested %d unihan records from %s", n, path)
	return n, nil
}

func buildFromUnihanCSV(s *Store, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	batch := new(leveldb.Batch)
	count := 0
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}

		cp, err := parseCodepoint(record[0])
		if err != nil {
			if row == 1 {
				continue // header row
			}
			return 0, fmt.Errorf("row %d: %w", row, err)
		}

		entry, err := parseUnihanRow(record)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", row, err)
		}

		rec, err := unihan.Encode(entry)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", row, err)
		}

		batch.Put(unihan.Key(cp), rec)
		count++
	}

	if err := s.write(batch); err != nil {
		return 0, err
	}
	return count, nil
}

// parseCodepoint rejects values above the Unicode range. Keys for valid code
// points always lead with a zero byte, which is what keeps them disjoint from
// word keys in a shared store.
func parseCodepoint(field string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(field), "U+")
	cp, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || cp > utf8.MaxRune {
		return 0, fmt.Errorf("bad codepoint %q", field)
	}
	return uint32(cp), nil
}

func parseUnihanRow(record []string) (unihan.Entry, error) {
	radical, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 8)
	if err != nil {
		return unihan.Entry{}, fmt.Errorf("bad radical %q", record[1])
	}
	radicalStroke, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 8)
	if err != nil {
		return unihan.Entry{}, fmt.Errorf("bad radical stroke %q", record[2])
	}
	totalStroke, err := strconv.ParseUint(strings.TrimSpace(record[3]), 10, 8)
	if err != nil {
		return unihan.Entry{}, fmt.Errorf("bad total stroke %q", record[3])
	}
	simplified, err := strconv.ParseBool(strings.TrimSpace(record[4]))
	if err != nil {
		return unihan.Entry{}, fmt.Errorf("bad simplified flag %q", record[4])
	}

	return unihan.Entry{
		Radical:       uint8(radical),
		RadicalStroke: uint8(radicalStroke),
		TotalStroke:   uint8(totalStroke),
		Simplified:    simplified,
	}, nil
}

// write commits a builder batch under the store's closed guard.
func (s *Store) write(batch *leveldb.Batch) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("dict: batch write: %w", ErrClosed)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("dict: batch write: %w", err)
	}
	return nil
}
