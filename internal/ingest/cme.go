package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jhc00/cmesrc/internal/types"
)

// ParseCMECatalogue reads the fixed-column CME text catalogue into
// normalised records, keyed by the §3 CME attributes.
//
// Per the supplemented de-duplication rule in SPEC_FULL.md (grounded on
// generate_catalogue.py): if a cme_id appears on more than one line, every
// row carrying that id is dropped — not just the extras — because a
// duplicated id is treated as a corrupt source record, not a harmless repeat.
func ParseCMECatalogue(r io.Reader) ([]types.CME, []SkippedRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var parsed []types.CME
	var skipped []SkippedRecord
	seenCount := make(map[int]int)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cme, err := parseCMELine(line)
		if err != nil {
			skipped = append(skipped, SkippedRecord{Line: lineNo, Reason: err.Error()})
			continue
		}
		seenCount[cme.CMEID]++
		parsed = append(parsed, cme)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("ingest: scanning CME catalogue: %w", err)
	}

	out := parsed[:0]
	for _, cme := range parsed {
		if seenCount[cme.CMEID] > 1 {
			skipped = append(skipped, SkippedRecord{
				Reason: fmt.Sprintf("cme_id %d duplicated %d times, dropping all occurrences", cme.CMEID, seenCount[cme.CMEID]),
			})
			continue
		}
		out = append(out, cme)
	}

	return out, skipped, nil
}

// parseCMELine parses one whitespace-delimited CME record:
// cme_id  date  time  pa|Halo  width  quality  seen_in  three_points
func parseCMELine(line string) (types.CME, error) {
	fields := strings.Fields(line)
	if len(fields) < 7 {
		return types.CME{}, fmt.Errorf("expected at least 7 fields, got %d", len(fields))
	}

	cmeID, err := strconv.Atoi(fields[0])
	if err != nil {
		return types.CME{}, fmt.Errorf("bad cme_id %q: %w", fields[0], err)
	}

	ts, err := time.Parse("2006/01/02 15:04:05", fields[1]+" "+fields[2])
	if err != nil {
		return types.CME{}, fmt.Errorf("bad detection timestamp: %w", err)
	}

	cme := types.CME{CMEID: cmeID, DetectionTs: ts, SeenIn: fields[6], Quality: fields[5]}

	if strings.EqualFold(fields[3], "Halo") {
		cme.Halo = true
	} else {
		pa, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return types.CME{}, fmt.Errorf("bad position angle %q: %w", fields[3], err)
		}
		cme.PA = &pa
	}

	width, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return types.CME{}, fmt.Errorf("bad width %q: %w", fields[4], err)
	}
	cme.Width = width

	return cme, nil
}

// IsGoodQuality implements the §4.C mask: CMEs with quality != "good" are
// excluded before matching.
func IsGoodQuality(c types.CME) bool {
	return strings.EqualFold(c.Quality, "good")
}
