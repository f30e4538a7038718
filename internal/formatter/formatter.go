// package formatter provides functions to export the album history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

const dateLayout = "2006-01-02 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func plays(n int) string {
	if n == 1 {
		return "1 play"
	}
	return fmt.Sprintf("%d plays", n)
}

// ExportToCSV converts albums to CSV format with columns: ID, Title, Artist, Listen Count, Last Listened, Audio Quality, URL
func ExportToCSV(albums []*models.Album) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Listen Count", "Last Listened", "Audio Quality", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, album := range albums {
		record := []string{
			album.ID,
			album.Title,
			album.Artist,
			strconv.Itoa(album.ListenCount),
			album.LastListened.UTC().Format(time.RFC3339),
			album.AudioQuality,
			album.TidalURL,
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

// ExportToMarkdown converts albums to a Markdown document headed by title.
func ExportToMarkdown(albums []*models.Album, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Listening History"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Albums**: %d\n\n", len(albums))

	for i, album := range albums {
		name := fmt.Sprintf("%s - %s", album.Artist, album.Title)
		if album.TidalURL != "" {
			name = fmt.Sprintf("[%s](%s)", name, album.TidalURL)
		}
		fmt.Fprintf(&buf, "%d. %s [%s, last %s]\n", i+1, name, plays(album.ListenCount), formatTime(album.LastListened))
	}

	return buf.Bytes(), nil
}

// ExportToText converts albums to plain text format
func ExportToText(albums []*models.Album) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Albums: %d\n\n", len(albums))
	for i, album := range albums {
		fmt.Fprintf(&buf, "%d. %s - %s (%s)\n", i+1, album.Artist, album.Title, plays(album.ListenCount))
	}

	return buf.Bytes(), nil
}

// Export renders albums in the given format. The Markdown title is fixed to the listing order.
func Export(albums []*models.Album, format Format, order models.AlbumOrder) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(albums)
	case FormatMarkdown:
		title := "Recently Listened Albums"
		if order == models.OrderMostListened {
			title = "Most Listened Albums"
		}
		return ExportToMarkdown(albums, title)
	case FormatText:
		return ExportToText(albums)
	case FormatJSON:
		return shared.MarshalJSON(albums, true)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes albums to path in the given format.
//
// Defaults to albums.{ext} as the filename.
func WriteExport(albums []*models.Album, format Format, order models.AlbumOrder, path string) (string, error) {
	if path == "" {
		path = "albums." + format.Extension()
	}

	data, err := Export(albums, format, order)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}
