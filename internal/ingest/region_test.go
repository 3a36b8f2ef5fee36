package ingest

import (
	"strings"
	"testing"
)

func TestParseRegionTimeSeriesParsesRows(t *testing.T) {
	input := "Timestamp\tLONDTMIN\tLONDTMAX\tLATDTMIN\tLATDTMAX\tIRBB\tIS_TMFI\n" +
		"2020-01-01 00:00:00\t-5\t5\t-3\t3\t0\t1\n" +
		"2020-01-01 00:12:00\t-4\t6\t-3\t3\t1\t0\n"

	rows, skipped, err := ParseRegionTimeSeries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseRegionTimeSeries: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v, want none", skipped)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !rows[0].TrustedField {
		t.Errorf("row 0 TrustedField = false, want true")
	}
	if rows[1].TrustedField {
		t.Errorf("row 1 TrustedField = true, want false")
	}
	if !rows[1].IsRotated {
		t.Errorf("row 1 IsRotated = false, want true")
	}
}

func TestParseRegionTimeSeriesMissingColumnErrors(t *testing.T) {
	input := "Timestamp\tLONDTMIN\tLONDTMAX\tLATDTMIN\tLATDTMAX\n2020-01-01 00:00:00\t-5\t5\t-3\t3\n"
	_, _, err := ParseRegionTimeSeries(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for missing required column")
	}
}

func TestParseRegionTimeSeriesSkipsBadRows(t *testing.T) {
	input := "Timestamp\tLONDTMIN\tLONDTMAX\tLATDTMIN\tLATDTMAX\tIRBB\tIS_TMFI\n" +
		"not-a-timestamp\t-5\t5\t-3\t3\t0\t1\n" +
		"2020-01-01 00:12:00\t-4\t6\t-3\t3\t0\t1\n"

	rows, skipped, err := ParseRegionTimeSeries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseRegionTimeSeries: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if len(skipped) != 1 {
		t.Fatalf("len(skipped) = %d, want 1", len(skipped))
	}
	if skipped[0].Line != 2 {
		t.Errorf("skipped line = %d, want 2", skipped[0].Line)
	}
}

func TestParseHARPNOAAMapping(t *testing.T) {
	input := "HARPNUM NOAA_ARS\n7115 12673\n7116 12674,12675\nbad-line\n"
	rows, skipped, err := ParseHARPNOAAMapping(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseHARPNOAAMapping: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if len(skipped) != 1 {
		t.Fatalf("len(skipped) = %d, want 1", len(skipped))
	}
	if rows[1].HARPNum != 7116 || len(rows[1].NOAAs) != 2 {
		t.Errorf("row 1 = %+v, want HARPNum=7116 with 2 NOAAs", rows[1])
	}
}
