package db

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// RosterRecord is one row of a player import file.
type RosterRecord struct {
	ID       string
	Name     string
	Surname  string
	Position string
}

// ReadRoster reads a CSV with the columns id, name, surname and position.
// The first row is a header. Rows without an id or a name are skipped.
func ReadRoster(path string) ([]RosterRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseRoster(file)
}

func parseRoster(r io.Reader) ([]RosterRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []RosterRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
				continue
			}
			return nil, fmt.Errorf("line %d: expected at least id and name", i+1)
		}
		record := RosterRecord{
			ID:   strings.TrimSpace(row[0]),
			Name: strings.TrimSpace(row[1]),
		}
		if len(row) > 2 {
			record.Surname = strings.TrimSpace(row[2])
		}
		if len(row) > 3 {
			record.Position = strings.TrimSpace(row[3])
		}
		if record.ID == "" || record.Name == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
