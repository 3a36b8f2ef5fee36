package ingest

import (
	"strings"
	"testing"
)

func TestParseDimmingCSV(t *testing.T) {
	input := "dimming_id,longitude,latitude,max_detection_time,start_time,avg_x,avg_y,avg_r\n" +
		"501,12.5,-30.2,2020-01-01 00:12:00,2020-01-01 00:00:00,100,200,0.9\n"

	rows, skipped, err := ParseDimmingCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDimmingCSV: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v, want none", skipped)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	d := rows[0]
	if d.DimmingID != 501 || d.Lon != 12.5 || d.Lat != -30.2 {
		t.Errorf("row = %+v, want id=501 lon=12.5 lat=-30.2", d)
	}
	if d.OffDiskR == nil || *d.OffDiskR != 0.9 {
		t.Errorf("OffDiskR = %v, want 0.9", d.OffDiskR)
	}
}

func TestParseDimmingCSVSkipsBadRow(t *testing.T) {
	input := "dimming_id,longitude,latitude,max_detection_time\n" +
		"not-a-number,12.5,-30.2,2020-01-01 00:12:00\n"
	rows, skipped, err := ParseDimmingCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseDimmingCSV: %v", err)
	}
	if len(rows) != 0 || len(skipped) != 1 {
		t.Fatalf("rows=%d skipped=%d, want 0/1", len(rows), len(skipped))
	}
}

func TestParseFlareCSV(t *testing.T) {
	input := "hec_id,time_peak,long_hg,lat_hg,xray_class\n" +
		"701,2020-01-01 00:12:00,15.0,-20.0,M1.5\n"

	rows, skipped, err := ParseFlareCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseFlareCSV: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v, want none", skipped)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].ClassScore != 31.5 {
		t.Errorf("ClassScore = %v, want 31.5", rows[0].ClassScore)
	}
}

func TestParseFlareCSVMissingClassSkipped(t *testing.T) {
	input := "hec_id,time_peak,long_hg,lat_hg,xray_class\n" +
		"701,2020-01-01 00:12:00,15.0,-20.0,\n"
	rows, skipped, err := ParseFlareCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseFlareCSV: %v", err)
	}
	if len(rows) != 0 || len(skipped) != 1 {
		t.Fatalf("rows=%d skipped=%d, want 0/1", len(rows), len(skipped))
	}
}

func TestFlareClassScore(t *testing.T) {
	cases := []struct {
		class string
		want  float64
	}{
		{"A", 0},
		{"B5", 15},
		{"C9.9", 29.9},
		{"M1.5", 31.5},
		{"X2", 42},
	}
	for _, c := range cases {
		got, err := FlareClassScore(c.class)
		if err != nil {
			t.Fatalf("FlareClassScore(%q): %v", c.class, err)
		}
		if got != c.want {
			t.Errorf("FlareClassScore(%q) = %v, want %v", c.class, got, c.want)
		}
	}
}

func TestFlareClassScoreRejectsUnknownLetter(t *testing.T) {
	if _, err := FlareClassScore("Z5"); err == nil {
		t.Fatal("expected error for unrecognized flare class letter")
	}
}
