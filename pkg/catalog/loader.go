package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/xuri/excelize/v2"
)

// Required column names, matched case-insensitively.
const (
	ColumnID         = "id"
	ColumnName       = "name"
	ColumnUntradable = "isuntradable"
	ColumnIcon       = "icon"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Load reads the catalog at path. It never fails: a missing or malformed
// file is logged and yields an empty store, which makes every search miss.
func Load(path string) *Store {
	info, err := ValidateFile(path)
	if err != nil {
		log.Errorf("Catalog file %s unavailable: %v", path, err)
		return Empty()
	}

	file, err := os.Open(path)
	if err != nil {
		log.Errorf("Failed to open catalog %s: %v", path, err)
		return Empty()
	}
	defer file.Close()

	var store *Store
	if info.Format == FormatXLSX {
		store, err = ParseWorkbook(file)
	} else {
		store, err = Parse(file, info.Delimiter)
	}
	if err != nil {
		log.Errorf("Failed to load catalog %s as %s: %v", path, info.Description, err)
		return Empty()
	}
	if store.IsEmpty() {
		log.Warnf("Catalog %s has no tradable items", path)
	} else {
		log.Debugf("Loaded %d tradable items from %s", store.Len(), path)
	}
	return store
}

// Parse reads a delimited table with a header row into a Store.
func Parse(r io.Reader, delimiter rune) (*Store, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var items []Item
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if isEmptyRecord(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		item, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}

	return NewStore(items), nil
}

// ParseWorkbook reads the first sheet of an Excel workbook into a Store.
// The first row is the header, as in Parse.
func ParseWorkbook(r io.Reader) (*Store, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var items []Item
	for i, record := range rows[1:] {
		if isEmptyRecord(record) {
			continue
		}
		item, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: %w", sheets[0], i+2, err)
		}
		items = append(items, item)
	}

	return NewStore(items), nil
}

type columns struct {
	id, name, untradable, icon int
}

func mapColumns(header []string) (columns, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return pos
	}

	cols := columns{
		id:         lookup(ColumnID),
		name:       lookup(ColumnName),
		untradable: lookup(ColumnUntradable),
		icon:       lookup(ColumnIcon),
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(record []string, cols columns) (Item, error) {
	rawID := strings.TrimSpace(field(record, cols.id))
	id, err := parseInt(rawID)
	if err != nil {
		return Item{}, fmt.Errorf("invalid id %q: %w", rawID, err)
	}

	icon := 0
	if rawIcon := strings.TrimSpace(field(record, cols.icon)); rawIcon != "" {
		icon, err = parseInt(rawIcon)
		if err != nil {
			log.Debugf("Item %d has invalid icon %q, using 0", id, rawIcon)
			icon = 0
		}
	}

	name := strings.TrimSpace(field(record, cols.name))
	return NewItem(id, name, icon, parseBool(field(record, cols.untradable))), nil
}

// parseInt accepts "123" and spreadsheet exports such as "123.0".
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "1.0", "yes", "y":
		return true
	}
	return false
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func isEmptyRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
