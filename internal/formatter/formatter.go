// package formatter converts track listings to and from CSV and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/praghad/internal/models"
)

var ErrBadRecord = errors.New("bad CSV record")

// Columns is the CSV header shared by [ExportToCSV] and [ImportCSV].
var Columns = []string{"ID", "Track", "Title", "Artist", "Album", "Genre", "Year", "Length", "Filename"}

// ExportToCSV converts tracks to CSV with [Columns] as the header row. Unknown numbers are left empty.
func ExportToCSV(tracks []*models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			strconv.FormatInt(track.ID, 10),
			number(track.TrackNumber),
			track.Title,
			track.Artist,
			track.Album,
			track.Genre,
			number(track.Year),
			number(track.Length),
			track.Filename,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ImportCSV reads tracks written by [ExportToCSV]. The ID column is ignored; the
// database assigns new ids. The header row is required and columns are matched by name,
// so a hand-written file may drop or reorder the optional ones.
func ImportCSV(r io.Reader) ([]*models.Track, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrBadRecord, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["filename"]; !ok {
		return nil, fmt.Errorf("%w: header has no Filename column", ErrBadRecord)
	}

	var tracks []*models.Track
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, line, err)
		}

		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		track := &models.Track{
			Filename: field("filename"),
			Title:    field("title"),
			Artist:   field("artist"),
			Album:    field("album"),
			Genre:    field("genre"),
		}
		for name, dst := range map[string]*int{"track": &track.TrackNumber, "year": &track.Year, "length": &track.Length} {
			v := field(name)
			if v == "" {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s %q is not a number", ErrBadRecord, line, name, v)
			}
			*dst = n
		}
		if err := track.Validate(); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, line, err)
		}

		tracks = append(tracks, track)
	}

	return tracks, nil
}

// ExportToText converts tracks to a numbered plain text listing
func ExportToText(tracks []*models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		line := fmt.Sprintf("%d. %s", i+1, Label(track))
		if d := FormatDuration(track.Length); d != "" {
			line += " [" + d + "]"
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// Rows returns one table row per track, in [TableHeaders] order.
func Rows(tracks []*models.Track) [][]string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			number(t.TrackNumber),
			t.Title,
			t.Artist,
			t.Album,
			number(t.Year),
			FormatDuration(t.Length),
		})
	}
	return rows
}

// TableHeaders labels the columns of [Rows].
var TableHeaders = []string{"ID", "#", "Title", "Artist", "Album", "Year", "Time"}

// Label is "Artist - Title", falling back to the file name when the tags are empty.
func Label(t *models.Track) string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return t.Filename
	}
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour. Unknown lengths are empty.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WriteCSVExport writes the CSV listing to path.
func WriteCSVExport(tracks []*models.Track, path string) error {
	data, err := ExportToCSV(tracks)
	if err != nil {
		return fmt.Errorf("failed to generate CSV: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

// WriteTextExport writes the plain text listing to path.
func WriteTextExport(tracks []*models.Track, path string) error {
	data, err := ExportToText(tracks)
	if err != nil {
		return fmt.Errorf("failed to generate text: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write text file: %w", err)
	}
	return nil
}

func number(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
