package export

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/folio-scout/harvest-cli/internal/model"
)

func writeXLSX(path string, result *model.HarvestResult) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Freelancers")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.ApplyFont = true

	header := sheet.AddRow()
	for _, name := range csvHeader {
		cell := header.AddCell()
		cell.Value = name
		cell.SetStyle(headerStyle)
	}

	for _, rec := range result.Records {
		row := sheet.AddRow()
		for _, v := range csvRow(rec) {
			row.AddCell().Value = v
		}
	}

	if err := addSummarySheet(f, result); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	return nil
}

func addSummarySheet(f *xlsx.File, result *model.HarvestResult) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	rows := [][2]string{
		{"keyword", result.Keyword},
		{"outcome", string(result.Outcome)},
		{"records", strconv.Itoa(len(result.Records))},
		{"failures", strconv.Itoa(len(result.Failures))},
		{"discovered", strconv.Itoa(result.Discovered)},
		{"pages_fetched", strconv.Itoa(result.PagesFetched)},
		{"duration_ms", strconv.FormatInt(result.DurationMS, 10)},
		{"cancelled", strconv.FormatBool(result.Cancelled)},
	}
	if len(result.Failures) > 0 {
		kinds := make([]string, 0, len(result.Failures))
		seen := make(map[string]struct{})
		for _, fail := range result.Failures {
			if _, dup := seen[fail.Kind]; dup {
				continue
			}
			seen[fail.Kind] = struct{}{}
			kinds = append(kinds, fail.Kind)
		}
		rows = append(rows, [2]string{"failure_kinds", strings.Join(kinds, "|")})
	}

	for _, kv := range rows {
		row := sheet.AddRow()
		row.AddCell().Value = kv[0]
		row.AddCell().Value = kv[1]
	}
	return nil
}
