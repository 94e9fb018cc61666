package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// #region load

// Load reads chapter and category CSV files. An empty path keeps the
// built-in list for that half of the catalog.
func Load(chaptersPath, categoriesPath string) (Catalog, error) {
	cat := Default()
	if chaptersPath != "" {
		f, err := os.Open(chaptersPath)
		if err != nil {
			return Catalog{}, fmt.Errorf("open chapters %s: %w", chaptersPath, err)
		}
		defer f.Close()
		if cat.Chapters, err = ReadChapters(f); err != nil {
			return Catalog{}, fmt.Errorf("read chapters %s: %w", chaptersPath, err)
		}
	}
	if categoriesPath != "" {
		f, err := os.Open(categoriesPath)
		if err != nil {
			return Catalog{}, fmt.Errorf("open categories %s: %w", categoriesPath, err)
		}
		defer f.Close()
		if cat.Categories, err = ReadCategories(f); err != nil {
			return Catalog{}, fmt.Errorf("read categories %s: %w", categoriesPath, err)
		}
	}
	return cat, nil
}

// ReadChapters parses a latin1 ';'-separated CSV with CATINIC, CATFIM and
// DESCRICAO columns.
func ReadChapters(r io.Reader) ([]Chapter, error) {
	recs, idx, err := readTable(r, "CATINIC", "CATFIM", "DESCRICAO")
	if err != nil {
		return nil, err
	}
	out := make([]Chapter, 0, len(recs))
	for _, rec := range recs {
		start, end := field(rec, idx[0]), field(rec, idx[1])
		if start == "" || end == "" {
			continue
		}
		out = append(out, Chapter{Start: start, End: end, Description: field(rec, idx[2])})
	}
	return out, nil
}

// ReadCategories parses a latin1 ';'-separated CSV with CAT and DESCRICAO
// columns.
func ReadCategories(r io.Reader) ([]Category, error) {
	recs, idx, err := readTable(r, "CAT", "DESCRICAO")
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(recs))
	for _, rec := range recs {
		code := field(rec, idx[0])
		if code == "" {
			continue
		}
		out = append(out, Category{Code: code, Description: field(rec, idx[1])})
	}
	return out, nil
}

// #endregion

// #region helpers

var errMissingColumn = errors.New("missing column")

func readTable(r io.Reader, columns ...string) ([][]string, []int, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		p, ok := pos[c]
		if !ok {
			return nil, nil, fmt.Errorf("%w %s", errMissingColumn, c)
		}
		idx[i] = p
	}

	recs, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return recs, idx, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// #endregion
