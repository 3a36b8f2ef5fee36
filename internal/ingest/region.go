// Package ingest parses the raw input catalogues named in the external
// interfaces (region time series, CME/dimming/flare catalogues, HARP→NOAA
// mapping) into the normalised records internal/types defines. Per-record
// errors are collected and skipped rather than aborting the whole file; the
// caller decides whether the skipped fraction crosses a fail threshold.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// SkippedRecord names one input line the ingestor could not parse.
type SkippedRecord struct {
	Line   int
	Reason string
}

// RegionRow is one raw bbox sample read from a region's SWAN-style time
// series file, ahead of being keyed to a region id.
type RegionRow struct {
	Ts       time.Time
	LonMin   float64
	LonMax   float64
	LatMin   float64
	LatMax   float64
	IsRotated bool
	TrustedField bool
}

const timestampLayout = "2006-01-02 15:04:05"

// ParseRegionTimeSeries reads the TSV format described in §6: a header
// including Timestamp, LONDTMIN, LONDTMAX, LATDTMIN, LATDTMAX, IRBB, IS_TMFI
// (plus per-flare-class columns this ingestor doesn't need). Malformed rows
// are skipped and reported, never fatal.
func ParseRegionTimeSeries(r io.Reader) ([]RegionRow, []SkippedRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("ingest: empty region time series")
	}
	header := strings.Split(scanner.Text(), "\t")
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}

	required := []string{"Timestamp", "LONDTMIN", "LONDTMAX", "LATDTMIN", "LATDTMAX", "IRBB", "IS_TMFI"}
	for _, c := range required {
		if _, ok := col[c]; !ok {
			return nil, nil, fmt.Errorf("ingest: region time series missing required column %q", c)
		}
	}

	var rows []RegionRow
	var skipped []SkippedRecord
	lineNo := 1

	for scanner.Scan() {
		lineNo++
		fields := strings.Split(scanner.Text(), "\t")
		row, err := parseRegionRow(fields, col)
		if err != nil {
			skipped = append(skipped, SkippedRecord{Line: lineNo, Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("ingest: scanning region time series: %w", err)
	}

	return rows, skipped, nil
}

func parseRegionRow(fields []string, col map[string]int) (RegionRow, error) {
	get := func(name string) (string, error) {
		idx, ok := col[name]
		if !ok || idx >= len(fields) {
			return "", fmt.Errorf("missing field %q", name)
		}
		return strings.TrimSpace(fields[idx]), nil
	}

	tsRaw, err := get("Timestamp")
	if err != nil {
		return RegionRow{}, err
	}
	ts, err := time.Parse(timestampLayout, tsRaw)
	if err != nil {
		return RegionRow{}, fmt.Errorf("bad timestamp %q: %w", tsRaw, err)
	}

	parseFloat := func(name string) (float64, error) {
		raw, err := get(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("bad %s %q: %w", name, raw, err)
		}
		return v, nil
	}

	lonMin, err := parseFloat("LONDTMIN")
	if err != nil {
		return RegionRow{}, err
	}
	lonMax, err := parseFloat("LONDTMAX")
	if err != nil {
		return RegionRow{}, err
	}
	latMin, err := parseFloat("LATDTMIN")
	if err != nil {
		return RegionRow{}, err
	}
	latMax, err := parseFloat("LATDTMAX")
	if err != nil {
		return RegionRow{}, err
	}

	irbbRaw, _ := get("IRBB")
	tmfiRaw, _ := get("IS_TMFI")

	return RegionRow{
		Ts:           ts,
		LonMin:       lonMin,
		LonMax:       lonMax,
		LatMin:       latMin,
		LatMax:       latMax,
		IsRotated:    irbbRaw == "1",
		TrustedField: tmfiRaw == "1" || tmfiRaw == "",
	}, nil
}

// NOAAMappingRow is one line of the HARPNUM/NOAA_ARS mapping file.
type NOAAMappingRow struct {
	HARPNum int
	NOAAs   []int
}

// ParseHARPNOAAMapping reads the whitespace-separated "HARPNUM NOAA_ARS"
// format, where NOAA_ARS is a comma-joined list of legacy region numbers.
func ParseHARPNOAAMapping(r io.Reader) ([]NOAAMappingRow, []SkippedRecord, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("ingest: empty HARP/NOAA mapping")
	}

	var rows []NOAAMappingRow
	var skipped []SkippedRecord
	lineNo := 1

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			skipped = append(skipped, SkippedRecord{Line: lineNo, Reason: "expected 2 whitespace-separated fields"})
			continue
		}
		harpnum, err := strconv.Atoi(fields[0])
		if err != nil {
			skipped = append(skipped, SkippedRecord{Line: lineNo, Reason: fmt.Sprintf("bad harpnum %q", fields[0])})
			continue
		}

		var noaas []int
		for _, noaaStr := range strings.Split(fields[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(noaaStr))
			if err != nil {
				continue
			}
			noaas = append(noaas, n)
		}
		rows = append(rows, NOAAMappingRow{HARPNum: harpnum, NOAAs: noaas})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("ingest: scanning HARP/NOAA mapping: %w", err)
	}

	return rows, skipped, nil
}
