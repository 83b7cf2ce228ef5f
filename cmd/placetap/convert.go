package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"placetap/internal/engine/codec"
	"placetap/internal/engine/storage"
	"placetap/internal/model"
)

func runConvert(args []string) error {
	var inputPath, outputPath string

	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	fs.StringVar(&inputPath, "input", "", "Input file: .json, .csv, .xlsx or .db (required)")
	fs.StringVar(&outputPath, "output", "", "Output file (default: input name with .csv)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: placetap convert [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  placetap convert -input madrid.json -output madrid.xlsx\n")
		fmt.Fprintf(os.Stderr, "  placetap convert -input archive.db\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if inputPath == "" {
		return fmt.Errorf("-input is required")
	}

	if outputPath == "" {
		dir := filepath.Dir(inputPath)
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outputPath = filepath.Join(dir, base+".csv")
	}
	if _, err := codec.DetectFormat(outputPath); err != nil {
		return err
	}

	records, err := loadDataset(inputPath)
	if err != nil {
		return fmt.Errorf("loading input: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no listings found in %s", inputPath)
	}

	if err := codec.Save(records, outputPath); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Converted %d listings to %s\n", len(records), outputPath)
	return nil
}

func loadDataset(path string) ([]model.BusinessRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".db") {
		store, err := storage.NewStore(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadAll()
	}
	records, _, err := codec.Load(path)
	return records, err
}
