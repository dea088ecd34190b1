package internal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"reflect"
	"time"

	json "github.com/goccy/go-json"

	"github.com/aquasecurity/table"
	"github.com/spf13/afero"
)

// ExportClient writes collected inventory to timestamped files. The file
// system is an Afero handle so unit tests can run against a memory fs, and
// the clock is injectable so filenames are deterministic under test.
type ExportClient struct {
	FS  afero.Fs
	Now func() time.Time
}

func NewExportClient() *ExportClient {
	return &ExportClient{
		FS:  afero.NewOsFs(),
		Now: time.Now,
	}
}

func (e *ExportClient) timestamp() string {
	return e.Now().Format("20060102_150405")
}

// ExportCSV writes header and body to {outputDirectory}/{prefix}_{ts}.csv and
// returns the full path. An empty body writes nothing and returns "": no
// zero-row files. Every row must have the header's column count; the caller
// guarantees schema stability within one call.
func (e *ExportClient) ExportCSV(header []string, body [][]string, outputDirectory string, prefix string) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	if err := e.FS.MkdirAll(outputDirectory, 0700); err != nil {
		return "", err
	}

	fullPath := path.Join(outputDirectory, fmt.Sprintf("%s_%s.csv", prefix, e.timestamp()))
	filePointer, err := e.FS.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("error creating csv file: %w", err)
	}
	defer filePointer.Close()

	csvWriter := csv.NewWriter(filePointer)
	if err := csvWriter.Write(header); err != nil {
		return "", err
	}
	for _, row := range body {
		if err := csvWriter.Write(row); err != nil {
			return "", err
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return "", err
	}
	return fullPath, nil
}

// ExportJSON marshals v to {outputDirectory}/{prefix}_{ts}.json. A nil value
// or an empty slice/map writes nothing and returns "".
func (e *ExportClient) ExportJSON(v interface{}, outputDirectory string, prefix string) (string, error) {
	if isEmptyValue(v) {
		return "", nil
	}
	if err := e.FS.MkdirAll(outputDirectory, 0700); err != nil {
		return "", err
	}

	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshalling json: %w", err)
	}

	fullPath := path.Join(outputDirectory, fmt.Sprintf("%s_%s.json", prefix, e.timestamp()))
	if err := afero.WriteFile(e.FS, fullPath, jsonBytes, 0644); err != nil {
		return "", fmt.Errorf("error writing json file: %w", err)
	}
	return fullPath, nil
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr:
		return rv.IsNil()
	}
	return false
}

// PrintTableToScreen renders a result table to stdout.
func PrintTableToScreen(header []string, body [][]string, wrapLines bool) {
	standardColumnWidth := 1000
	t := table.New(os.Stdout)

	if !wrapLines {
		t.SetColumnMaxWidth(standardColumnWidth)
	}

	t.SetHeaders(header...)
	t.AddRows(body...)
	t.SetHeaderStyle(table.StyleBold)
	t.SetRowLines(false)
	t.SetLineStyle(table.StyleCyan)
	t.SetDividers(table.UnicodeRoundedDividers)
	t.SetAlignment(table.AlignLeft)
	t.Render()
}
