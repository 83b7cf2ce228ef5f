// Package codec reads and writes the collected dataset in its three
// interchangeable on-disk formats.
package codec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"

	"placetap/internal/model"
)

// Format is one of the supported on-disk formats.
type Format int

const (
	FormatJSON Format = iota
	FormatCSV
	FormatXLSX
)

const sheetName = "Listings"

// DetectFormat maps a file extension to a format. Legacy .xls is not a
// supported format: its binary layout is not what the xlsx codec writes
// or reads.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return 0, fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
}

// row is one record flattened for tabular output. List fields are joined
// with ", ", the social mapping as "key: value" pairs.
type row struct {
	UUID            string `csv:"UUID"`
	Name            string `csv:"Name"`
	Phone           string `csv:"Phone Number"`
	Address         string `csv:"Address"`
	GMapsURL        string `csv:"GMaps URL"`
	Website         string `csv:"Website"`
	Rating          string `csv:"Rating"`
	RatingCount     int    `csv:"Rating Count"`
	OpeningHours    string `csv:"Opening Hours"`
	PriceTier       string `csv:"Price Tier"`
	PhotoCount      int    `csv:"Photo Count"`
	Amenities       string `csv:"Amenities"`
	SocialMedia     string `csv:"Social Media"`
	DeliveryOptions string `csv:"Delivery Options"`
	BusinessType    string `csv:"Business Type"`
}

// tabularHeader is the fixed column order for CSV and XLSX output.
var tabularHeader = []string{
	"UUID", "Name", "Phone Number", "Address", "GMaps URL", "Website",
	"Rating", "Rating Count", "Opening Hours", "Price Tier", "Photo Count",
	"Amenities", "Social Media", "Delivery Options", "Business Type",
}

func toRow(r model.BusinessRecord) row {
	return row{
		UUID:            r.UUID,
		Name:            r.Name,
		Phone:           r.Phone,
		Address:         r.Address,
		GMapsURL:        r.GMapsURL,
		Website:         r.Website,
		Rating:          r.Rating,
		RatingCount:     r.RatingCount,
		OpeningHours:    r.OpeningHours,
		PriceTier:       r.PriceTier,
		PhotoCount:      r.PhotoCount,
		Amenities:       model.JoinList(r.Amenities),
		SocialMedia:     model.JoinPairs(r.SocialMedia),
		DeliveryOptions: model.JoinList(r.DeliveryOptions),
		BusinessType:    r.BusinessType,
	}
}

func fromRow(rw row) model.BusinessRecord {
	r := model.BusinessRecord{
		UUID:            rw.UUID,
		Name:            rw.Name,
		Phone:           rw.Phone,
		Address:         rw.Address,
		GMapsURL:        rw.GMapsURL,
		Website:         rw.Website,
		Rating:          rw.Rating,
		RatingCount:     rw.RatingCount,
		OpeningHours:    rw.OpeningHours,
		PriceTier:       rw.PriceTier,
		PhotoCount:      rw.PhotoCount,
		Amenities:       model.SplitList(rw.Amenities),
		SocialMedia:     model.SplitPairs(rw.SocialMedia),
		DeliveryOptions: model.SplitList(rw.DeliveryOptions),
		BusinessType:    rw.BusinessType,
	}
	r.EnsureID()
	return r
}

// Load reads a file into (ordered records, set of canonical URLs). The
// URL set seeds deduplication for subsequent fetches.
func Load(path string) ([]model.BusinessRecord, map[string]struct{}, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}

	var records []model.BusinessRecord
	switch format {
	case FormatJSON:
		records, err = loadJSON(path)
	case FormatCSV:
		records, err = loadCSV(path)
	case FormatXLSX:
		records, err = loadXLSX(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", path, err)
	}

	urls := make(map[string]struct{}, len(records))
	for i := range records {
		records[i].EnsureID()
		if records[i].GMapsURL != "" {
			urls[records[i].GMapsURL] = struct{}{}
		}
	}
	return records, urls, nil
}

// Save writes the full record list, format chosen by extension.
func Save(records []model.BusinessRecord, path string) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		err = saveJSON(records, path)
	case FormatCSV:
		err = saveCSV(records, path)
	case FormatXLSX:
		err = saveXLSX(records, path)
	}
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// Append loads the target file, concatenates the new records and rewrites
// the whole file in place. A missing target is a no-op. The rewrite is
// not atomic.
func Append(records []model.BusinessRecord, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	existing, _, err := Load(path)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return Save(append(existing, records...), path)
}

func loadJSON(path string) ([]model.BusinessRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []model.BusinessRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return records, nil
}

func saveJSON(records []model.BusinessRecord, path string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func loadCSV(path string) ([]model.BusinessRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding csv: %w", err)
	}
	records := make([]model.BusinessRecord, len(rows))
	for i, rw := range rows {
		records[i] = fromRow(rw)
	}
	return records, nil
}

func saveCSV(records []model.BusinessRecord, path string) error {
	rows := make([]row, len(records))
	for i, r := range records {
		rows[i] = toRow(r)
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encoding csv: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func loadXLSX(path string) ([]model.BusinessRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	// Columns are matched by header name, not position.
	colIdx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		colIdx[h] = i
	}
	cell := func(cells []string, header string) string {
		idx, ok := colIdx[header]
		if !ok || idx >= len(cells) {
			return ""
		}
		return cells[idx]
	}

	var records []model.BusinessRecord
	for _, cells := range rows[1:] {
		ratingCount, _ := strconv.Atoi(cell(cells, "Rating Count"))
		photoCount, _ := strconv.Atoi(cell(cells, "Photo Count"))
		records = append(records, fromRow(row{
			UUID:            cell(cells, "UUID"),
			Name:            cell(cells, "Name"),
			Phone:           cell(cells, "Phone Number"),
			Address:         cell(cells, "Address"),
			GMapsURL:        cell(cells, "GMaps URL"),
			Website:         cell(cells, "Website"),
			Rating:          cell(cells, "Rating"),
			RatingCount:     ratingCount,
			OpeningHours:    cell(cells, "Opening Hours"),
			PriceTier:       cell(cells, "Price Tier"),
			PhotoCount:      photoCount,
			Amenities:       cell(cells, "Amenities"),
			SocialMedia:     cell(cells, "Social Media"),
			DeliveryOptions: cell(cells, "Delivery Options"),
			BusinessType:    cell(cells, "Business Type"),
		}))
	}
	return records, nil
}

func saveXLSX(records []model.BusinessRecord, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := make([]any, len(tabularHeader))
	for i, h := range tabularHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, r := range records {
		rw := toRow(r)
		cells := []any{
			rw.UUID, rw.Name, rw.Phone, rw.Address, rw.GMapsURL, rw.Website,
			rw.Rating, rw.RatingCount, rw.OpeningHours, rw.PriceTier, rw.PhotoCount,
			rw.Amenities, rw.SocialMedia, rw.DeliveryOptions, rw.BusinessType,
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cellRef, &cells); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
