// Package export writes collected business records to result files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bbb-collector/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const filePrefix = "bbb-scrape-results"

// ParseFormats validates and deduplicates format names.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool, len(names))
	var out []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatJSON, FormatCSV, FormatXLSX:
		case "":
			continue
		default:
			return nil, eris.Errorf("export: unknown format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// FileName returns the dated result file name for f.
func FileName(day time.Time, f Format) string {
	return filePrefix + "-" + day.Format("2006-01-02") + "." + string(f)
}

// row is the tabular shape shared by CSV and XLSX.
type row struct {
	Name                string  `csv:"Name"`
	Phone               *string `csv:"Phone"`
	Address             *string `csv:"Address"`
	URL                 string  `csv:"URL"`
	AccreditationStatus string  `csv:"Accreditation Status"`
	PrincipalContact    *string `csv:"Principal Contact"`
}

var header = []string{"Name", "Phone", "Address", "URL", "Accreditation Status", "Principal Contact"}

func toRows(records []model.BusinessRecord) []row {
	rows := make([]row, len(records))
	for i, r := range records {
		rows[i] = row{
			Name:                r.Name,
			Phone:               r.Phone,
			Address:             r.Address,
			URL:                 r.URL,
			AccreditationStatus: r.AccreditationStatus,
			PrincipalContact:    r.PrincipalContact,
		}
	}
	return rows
}

func (r row) cells() []string {
	return []string{r.Name, deref(r.Phone), deref(r.Address), r.URL, r.AccreditationStatus, deref(r.PrincipalContact)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []model.BusinessRecord) error {
	if records == nil {
		records = []model.BusinessRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(records), "export: encode json")
}

// WriteCSV writes a header row plus one row per record.
func WriteCSV(w io.Writer, records []model.BusinessRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(row{}); err != nil {
		return eris.Wrap(err, "export: encode csv header")
	}
	for _, r := range toRows(records) {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "export: encode csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single "Businesses" sheet with the CSV columns.
func WriteXLSX(w io.Writer, records []model.BusinessRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Businesses")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow := func(cells []string) {
		xr := sheet.AddRow()
		for _, c := range cells {
			xr.AddCell().SetString(c)
		}
	}
	addRow(header)
	for _, r := range toRows(records) {
		addRow(r.cells())
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// WriteFiles writes one dated file per format into dir and returns the paths
// written. JSON is always written; CSV and XLSX only when there are records.
func WriteFiles(dir string, day time.Time, records []model.BusinessRecord, formats []Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dir)
	}

	var paths []string
	for _, f := range formats {
		if f != FormatJSON && len(records) == 0 {
			continue
		}

		path := filepath.Join(dir, FileName(day, f))
		if err := writeFile(path, f, records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, f Format, records []model.BusinessRecord) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "export: close %s", path)
		}
	}()

	switch f {
	case FormatJSON:
		return WriteJSON(out, records)
	case FormatCSV:
		return WriteCSV(out, records)
	case FormatXLSX:
		return WriteXLSX(out, records)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}
