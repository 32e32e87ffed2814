package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/filestorage/fsctl/pkg/filestore"
)

var errDownloadFailed = errors.New("download failed: response named no file")

// renderRaw writes the service body exactly as received.
func renderRaw(w io.Writer, raw json.RawMessage) error {
	if _, err := w.Write(raw); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// renderRecords prints records as a grid. Columns are the union of keys in
// first-seen order; missing cells stay empty. Nothing is printed for an
// empty slice.
func renderRecords(w io.Writer, records []filestore.Record) error {
	if len(records) == 0 {
		return nil
	}
	headers := columns(records)
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(headers))
		for i, key := range headers {
			if v, ok := rec.Get(key); ok {
				row[i] = formatCell(v)
			}
		}
		rows = append(rows, row)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetRowLine(true)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func columns(records []filestore.Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		for _, key := range rec.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return fmt.Sprint(val)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprint(val)
		}
		return string(bytes.TrimRight(buf.Bytes(), "\n"))
	}
}
