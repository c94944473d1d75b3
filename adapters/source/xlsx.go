package source

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"datamart/domain/dataset"
)

// ParseXLSXListing reads a bulk-dump's metadata listing from an .xlsx
// workbook's first sheet instead of JSON, for sources that ship their
// listing as a spreadsheet (header row: source_local_id, name,
// description, source_url, updated).
func ParseXLSXListing(path string) ([]dataset.DatasetDescriptor, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: open xlsx listing: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("source: xlsx listing has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("source: read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 1 {
		return nil, nil
	}

	columnIndex := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columnIndex[name] = i
	}

	cell := func(row []string, name string) string {
		idx, ok := columnIndex[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	descriptors := make([]dataset.DatasetDescriptor, 0, len(rows)-1)
	for _, row := range rows[1:] {
		localID := cell(row, "source_local_id")
		if localID == "" {
			continue
		}
		descriptors = append(descriptors, dataset.DatasetDescriptor{
			SourceLocalID: localID,
			Name:          cell(row, "name"),
			Description:   cell(row, "description"),
			SourceURL:     cell(row, "source_url"),
			Materialize: dataset.Materialize{
				SourceLocalID: localID,
				Updated:       cell(row, "updated"),
			},
		})
	}
	return descriptors, nil
}
