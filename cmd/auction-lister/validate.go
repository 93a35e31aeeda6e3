package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-auction-lister/models"
	"github.com/aluiziolira/go-auction-lister/parser"
)

func init() {
	flags := validateCmd.Flags()
	flags.StringP("input", "i", "", "Delimited listing sheet")
	flags.String("encoding", "", "Sheet encoding: utf-8 or shift_jis")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate --input <items.csv>",
	Short: "Checks a listing sheet and previews the records without posting.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.InputFile == "" {
			return fmt.Errorf("--input is required")
		}
		enc, err := parser.ParseEncoding(cfg.Encoding)
		if err != nil {
			return err
		}
		text, err := parser.ReadFile(cfg.InputFile, enc)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		result := parser.Validate(text)
		printValidation(out, result)
		if !result.Valid {
			return fmt.Errorf("%s is not a valid listing sheet", cfg.InputFile)
		}

		records, err := parser.Parse(text)
		if err != nil {
			return err
		}
		printRecords(out, records)
		return nil
	},
}

func printValidation(w io.Writer, result parser.ValidationResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Check", "Result"})
	t.AppendRow(table.Row{"Valid", result.Valid})
	t.AppendRow(table.Row{"Lines", result.LineCount})
	t.AppendRow(table.Row{"Columns", result.ColumnCount})
	for _, e := range result.Errors {
		t.AppendRow(table.Row{"Error", e})
	}
	for _, warn := range result.Warnings {
		t.AppendRow(table.Row{"Warning", warn})
	}
	t.Render()
}

func printRecords(w io.Writer, records []models.Record) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Title", "Start price", "Buy now", "End", "Images"})
	for i, r := range records {
		price := parser.NormalizePrice(r.Get(models.FieldStartPrice))
		buyNow := parser.NormalizePrice(r.Get(models.FieldBuyNowPrice))
		end := r.Get(models.FieldEndDate)
		if normalized, err := parser.NormalizeDate(end); err == nil {
			end = normalized
		}
		if at := r.Get(models.FieldEndTime); at != "" {
			end += " " + at + ":00"
		}
		t.AppendRow(table.Row{strconv.Itoa(i + 1), r.Title(), price, buyNow, end, len(r.Images())})
	}
	t.AppendFooter(table.Row{"", "Total", "", "", "", len(records)})
	t.Render()
}
