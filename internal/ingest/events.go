package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jhc00/cmesrc/internal/types"
)

// ParseDimmingCSV reads the `dimming_id, longitude, latitude,
// max_detection_time, start_time, avg_x, avg_y, avg_r` format from §6.
func ParseDimmingCSV(r io.Reader) ([]types.Dimming, []SkippedRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: reading dimming CSV header: %w", err)
	}
	col := indexHeader(header)

	var rows []types.Dimming
	var skipped []SkippedRecord
	lineNo := 1

	for {
		lineNo++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: reading dimming CSV row %d: %w", lineNo, err)
		}

		d, err := parseDimmingRecord(record, col)
		if err != nil {
			skipped = append(skipped, SkippedRecord{Line: lineNo, Reason: err.Error()})
			continue
		}
		rows = append(rows, d)
	}

	return rows, skipped, nil
}

func parseDimmingRecord(record []string, col map[string]int) (types.Dimming, error) {
	get := func(name string) (string, bool) {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[idx]), true
	}

	idRaw, ok := get("dimming_id")
	if !ok {
		return types.Dimming{}, fmt.Errorf("missing dimming_id")
	}
	id, err := strconv.Atoi(idRaw)
	if err != nil {
		return types.Dimming{}, fmt.Errorf("bad dimming_id %q: %w", idRaw, err)
	}

	tsRaw, ok := get("max_detection_time")
	if !ok {
		return types.Dimming{}, fmt.Errorf("missing max_detection_time")
	}
	ts, err := time.Parse(timestampLayout, tsRaw)
	if err != nil {
		return types.Dimming{}, fmt.Errorf("bad max_detection_time %q: %w", tsRaw, err)
	}

	lonRaw, _ := get("longitude")
	latRaw, _ := get("latitude")
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return types.Dimming{}, fmt.Errorf("bad longitude %q: %w", lonRaw, err)
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return types.Dimming{}, fmt.Errorf("bad latitude %q: %w", latRaw, err)
	}

	d := types.Dimming{DimmingID: id, Ts: ts, Lon: lon, Lat: lat}

	if xRaw, ok := get("avg_x"); ok {
		if x, err := strconv.ParseFloat(xRaw, 64); err == nil {
			d.OffDiskX = &x
		}
	}
	if yRaw, ok := get("avg_y"); ok {
		if y, err := strconv.ParseFloat(yRaw, 64); err == nil {
			d.OffDiskY = &y
		}
	}
	if rRaw, ok := get("avg_r"); ok {
		if rr, err := strconv.ParseFloat(rRaw, 64); err == nil {
			d.OffDiskR = &rr
		}
	}

	return d, nil
}

// ParseFlareCSV reads the `hec_id, time_peak, long_hg, lat_hg, xray_class`
// format from §6 and computes the class score (A=0,B=10,C=20,M=30,X=40 plus
// fractional magnitude, e.g. "M1.5" -> 31.5).
func ParseFlareCSV(r io.Reader) ([]types.Flare, []SkippedRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: reading flare CSV header: %w", err)
	}
	col := indexHeader(header)

	var rows []types.Flare
	var skipped []SkippedRecord
	lineNo := 1

	for {
		lineNo++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: reading flare CSV row %d: %w", lineNo, err)
		}

		f, err := parseFlareRecord(record, col)
		if err != nil {
			skipped = append(skipped, SkippedRecord{Line: lineNo, Reason: err.Error()})
			continue
		}
		rows = append(rows, f)
	}

	return rows, skipped, nil
}

func parseFlareRecord(record []string, col map[string]int) (types.Flare, error) {
	get := func(name string) (string, bool) {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[idx]), true
	}

	idRaw, ok := get("hec_id")
	if !ok {
		return types.Flare{}, fmt.Errorf("missing hec_id")
	}
	id, err := strconv.Atoi(idRaw)
	if err != nil {
		return types.Flare{}, fmt.Errorf("bad hec_id %q: %w", idRaw, err)
	}

	tsRaw, ok := get("time_peak")
	if !ok {
		return types.Flare{}, fmt.Errorf("missing time_peak")
	}
	ts, err := time.Parse(timestampLayout, tsRaw)
	if err != nil {
		return types.Flare{}, fmt.Errorf("bad time_peak %q: %w", tsRaw, err)
	}

	lonRaw, _ := get("long_hg")
	latRaw, _ := get("lat_hg")
	lon, _ := strconv.ParseFloat(lonRaw, 64)
	lat, _ := strconv.ParseFloat(latRaw, 64)

	classRaw, ok := get("xray_class")
	if !ok || classRaw == "" {
		return types.Flare{}, fmt.Errorf("missing xray_class")
	}
	score, err := FlareClassScore(classRaw)
	if err != nil {
		return types.Flare{}, err
	}

	return types.Flare{
		FlareID:    id,
		Ts:         ts,
		Lon:        lon,
		Lat:        lat,
		ClassScore: score,
		ClassLabel: classRaw,
	}, nil
}

// FlareClassScore converts an X-ray class label (e.g. "M1.5", "X2", "C9.9")
// to the §3 numeric score: letter base (A=0,B=10,C=20,M=30,X=40) plus the
// fractional magnitude.
func FlareClassScore(class string) (float64, error) {
	if class == "" {
		return 0, fmt.Errorf("empty flare class")
	}
	letter := strings.ToUpper(class[:1])
	var base float64
	switch letter {
	case "A":
		base = 0
	case "B":
		base = 10
	case "C":
		base = 20
	case "M":
		base = 30
	case "X":
		base = 40
	default:
		return 0, fmt.Errorf("unrecognized flare class letter %q", letter)
	}

	if len(class) == 1 {
		return base, nil
	}
	magnitude, err := strconv.ParseFloat(class[1:], 64)
	if err != nil {
		return 0, fmt.Errorf("bad flare class magnitude in %q: %w", class, err)
	}
	return base + magnitude, nil
}

func indexHeader(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	return col
}
