package pipeline

import (
	"io"

	"github.com/jhc00/cmesrc/internal/ingest"
	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/internal/types"
)

// IngestRegionTimeSeries parses one region's raw bbox time series and
// stores it (stage C feeding stage B). Malformed rows are skipped, never
// fatal (§7).
func IngestRegionTimeSeries(st *store.Store, regionID int, r io.Reader) (skipped int, err error) {
	rows, skippedRows, err := ingest.ParseRegionTimeSeries(r)
	if err != nil {
		return 0, err
	}
	samples := make([]types.RawBBoxSample, len(rows))
	for i, row := range rows {
		samples[i] = types.RawBBoxSample{BBoxSample: types.BBoxSample{
			RegionID:     regionID,
			Ts:           row.Ts,
			LonMin:       row.LonMin,
			LonMax:       row.LonMax,
			LatMin:       row.LatMin,
			LatMax:       row.LatMax,
			TrustedField: row.TrustedField,
		}}
	}
	if err := st.InsertRawBBoxSamples(samples); err != nil {
		return len(skippedRows), err
	}
	for _, s := range skippedRows {
		log.Warnf("ingest: region %d line %d skipped: %s", regionID, s.Line, s.Reason)
	}
	return len(skippedRows), nil
}

// IngestCMECatalogue parses and stores the CME catalogue, applying the
// strict duplicate-id-drop-all rule (supplemented from original_source/).
func IngestCMECatalogue(st *store.Store, r io.Reader) (skipped int, err error) {
	cmes, skippedRows, err := ingest.ParseCMECatalogue(r)
	if err != nil {
		return 0, err
	}
	if err := st.InsertCMEs(cmes); err != nil {
		return len(skippedRows), err
	}
	for _, s := range skippedRows {
		log.Warnf("ingest: cme catalogue line %d skipped: %s", s.Line, s.Reason)
	}
	return len(skippedRows), nil
}

// IngestDimmingCatalogue parses and stores the dimming catalogue.
func IngestDimmingCatalogue(st *store.Store, r io.Reader) (skipped int, err error) {
	dimmings, skippedRows, err := ingest.ParseDimmingCSV(r)
	if err != nil {
		return 0, err
	}
	if err := st.InsertDimmings(dimmings); err != nil {
		return len(skippedRows), err
	}
	for _, s := range skippedRows {
		log.Warnf("ingest: dimming catalogue line %d skipped: %s", s.Line, s.Reason)
	}
	return len(skippedRows), nil
}

// IngestFlareCatalogue parses and stores the flare catalogue.
func IngestFlareCatalogue(st *store.Store, r io.Reader) (skipped int, err error) {
	flares, skippedRows, err := ingest.ParseFlareCSV(r)
	if err != nil {
		return 0, err
	}
	if err := st.InsertFlares(flares); err != nil {
		return len(skippedRows), err
	}
	for _, s := range skippedRows {
		log.Warnf("ingest: flare catalogue line %d skipped: %s", s.Line, s.Reason)
	}
	return len(skippedRows), nil
}
