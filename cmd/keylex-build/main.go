// Copyright 2025 The Keylex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements keylex-build, the offline data pipeline for keylex.

It produces everything the server loads at startup: LevelDB dictionary
stores from plain-text word lists, character metadata records from a Unihan
CSV export, and n-gram counts files from raw text corpora. Builds are
batch jobs; run them wherever the data lives and ship the outputs.

Build a word dictionary from tab-separated lists:

	keylex-build -store data/words.db -words lists/en.tsv,lists/extra.tsv

Add character metadata to the same store (code point keys never collide
with words):

	keylex-build -store data/words.db -unihan data/unihan.csv

Count n-grams from corpus text:

	keylex-build -counts data/counts.txt -corpus corpus/wiki.txt,corpus/chat.txt -order 3 -min 2

Corpus lines are lowercased and tokenized exactly the way the server
tokenizes prediction contexts, so a table built here answers the lookups
the engine performs. Output lines are "tok1 ... tokN COUNT", sorted by
count descending then alphabetically for stable diffs.
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/keylex/keylex/internal/logger"
	"github.com/keylex/keylex/pkg/dict"
	"github.com/keylex/keylex/pkg/ngram"
	"github.com/keylex/keylex/pkg/predict"
)

const (
	// scannerBufSize handles very long corpus lines.
	scannerBufSize = 4 * 1024 * 1024
	writerBufSize  = 4 * 1024 * 1024
)

type countEntry struct {
	gram  string
	count int
}

func main() {
	storePath := flag.String("store", "", "LevelDB store directory to create or update")
	wordLists := flag.String("words", "", "Comma-separated word list files (word<TAB>definition per line)")
	unihanCSV := flag.String("unihan", "", "Unihan metadata CSV to ingest")
	corpus := flag.String("corpus", "", "Comma-separated plain-text corpus files for ngram counting")
	countsOut := flag.String("counts", "", "Output path for the ngram counts file")
	order := flag.Int("order", ngram.DefaultMaxOrder, "Highest ngram order to count")
	minCount := flag.Int("min", 1, "Drop ngrams seen fewer than this many times")
	debugMode := flag.Bool("d", false, "Toggle debug mode")

	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	blog := logger.Default("build")

	built := false

	if *wordLists != "" || *unihanCSV != "" {
		if *storePath == "" {
			blog.Fatal("-words and -unihan need a -store path")
		}

		store, err := dict.Open(*storePath, true)
		if err != nil {
			blog.Fatalf("cannot open store: %v", err)
		}

		if *wordLists != "" {
			n, err := dict.BuildFromWordLists(store, splitPaths(*wordLists))
			if err != nil {
				store.Close()
				blog.Fatalf("word list build failed: %v", err)
			}
			blog.Infof("wrote %d word entries to %s", n, *storePath)
		}

		if *unihanCSV != "" {
			n, err := dict.BuildFromUnihanCSV(store, *unihanCSV)
			if err != nil {
				store.Close()
				blog.Fatalf("unihan build failed: %v", err)
			}
			blog.Infof("wrote %d character records to %s", n, *storePath)
		}

		if err := store.Close(); err != nil {
			blog.Fatalf("closing store: %v", err)
		}
		built = true
	}

	if *corpus != "" {
		if *countsOut == "" {
			blog.Fatal("-corpus needs a -counts output path")
		}
		if *order < 1 {
			blog.Fatalf("bad -order %d, want >= 1", *order)
		}

		n, err := buildCounts(splitPaths(*corpus), *countsOut, *order, *minCount, blog)
		if err != nil {
			blog.Fatalf("ngram build failed: %v", err)
		}
		blog.Infof("wrote %d ngram entries to %s", n, *countsOut)
		built = true
	}

	if !built {
		flag.Usage()
		blog.Fatal("nothing to build: pass -words, -unihan, or -corpus")
	}
}

func splitPaths(s string) []string {
	var paths []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// buildCounts tokenizes each corpus file, accumulates counts for every
// ngram up to maxOrder, and writes the surviving entries sorted by count
// descending then alphabetically. Returns the number of entries written.
func buildCounts(paths []string, outPath string, maxOrder, minCount int, blog *log.Logger) (int, error) {
	freq := make(map[string]int)
	for _, path := range paths {
		n, err := countCorpus(path, maxOrder, freq, blog)
		if err != nil {
			return 0, fmt.Errorf("corpus %s: %w", path, err)
		}
		blog.Infof("processed %d lines from %s", n, path)
	}

	entries := make([]countEntry, 0, len(freq))
	for gram, c := range freq {
		if c < minCount {
			continue
		}
		entries = append(entries, countEntry{gram, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].gram < entries[j].gram
	})

	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, writerBufSize)
	for _, e := range entries {
		fmt.Fprintf(bw, "%s %d\n", e.gram, e.count)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// countCorpus reads one plain-text file line by line and accumulates
// lowercased ngram counts into freq. Returns the number of lines read.
func countCorpus(path string, maxOrder int, freq map[string]int, blog *log.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), scannerBufSize)

	lines := 0
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		tokens := predict.Tokenize(strings.ToLower(line))
		for i := range tokens {
			for n := 1; n <= maxOrder && i+n <= len(tokens); n++ {
				freq[strings.Join(tokens[i:i+n], " ")]++
			}
		}
		lines++
		if lines%100_000 == 0 {
			blog.Debugf("%s: %d lines processed", path, lines)
		}
	}
	return lines, sc.Err()
}
