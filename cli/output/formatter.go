// Package output prints command results: aligned tables for people, JSON or
// YAML for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format is the --output flag value
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses the --output flag
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
	}
}

// View is one command result. Data is what json and yaml encode; Table is
// the same result laid out for a terminal.
type View interface {
	Data() any
	Table() (TableData, error)
}

// TableData is a header row plus rows of cells
type TableData struct {
	Headers []string
	Rows    [][]string
}

// Formatter writes views in the selected format
type Formatter struct {
	Format    Format
	NoHeaders bool
	Quiet     bool
	Writer    io.Writer
}

// NewFormatter creates a formatter writing to stdout
func NewFormatter(format Format, noHeaders, quiet bool) *Formatter {
	return &Formatter{
		Format:    format,
		NoHeaders: noHeaders,
		Quiet:     quiet,
		Writer:    os.Stdout,
	}
}

// PrintView renders v as a table, or encodes v.Data() for json and yaml
func (f *Formatter) PrintView(v View) error {
	if f.Quiet {
		return nil
	}
	if f.Format != FormatTable {
		return f.Print(v.Data())
	}
	data, err := v.Table()
	if err != nil {
		return err
	}
	f.PrintTable(data)
	return nil
}

// Print encodes data as YAML in yaml format and as indented JSON otherwise
func (f *Formatter) Print(data any) error {
	if f.Quiet {
		return nil
	}
	if f.Format == FormatYAML {
		encoder := yaml.NewEncoder(f.Writer)
		encoder.SetIndent(2)
		defer func() { _ = encoder.Close() }()
		return encoder.Encode(data)
	}
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintTable writes data as borderless, tab-padded columns
func (f *Formatter) PrintTable(data TableData) {
	if f.Quiet {
		return
	}

	table := tablewriter.NewWriter(f.Writer)
	if !f.NoHeaders && len(data.Headers) > 0 {
		table.SetHeader(data.Headers)
	}

	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(data.Rows)
	table.Render()
}
