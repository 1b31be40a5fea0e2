package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"shopeasy/models"
)

var csvHeader = []string{
	"platform", "title", "price", "url", "rating", "num_reviews",
	"delivery_time", "return_policy_score", "scraped_at",
}

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("csv: writer closed")

// CSVWriter exports canonical listings. Rows go to a hidden temp file beside
// the target, which replaces the target on Close; a failed export leaves any
// previous file untouched. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewCSVWriter starts an export to path, creating its directory if needed.
func NewCSVWriter(path string) (*CSVWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csv: output dir %q: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("csv: temp file in %q: %w", dir, err)
	}
	_ = f.Chmod(0o644)

	c := &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}
	if err := c.writer.Write(csvHeader); err != nil {
		c.abort()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return c, nil
}

// Write appends one row per listing. Absent optional fields are left blank.
func (c *CSVWriter) Write(listings []models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return ErrWriterClosed
	}

	for _, l := range listings {
		row := []string{
			l.Source,
			l.Title,
			strconv.FormatFloat(l.Price, 'f', 2, 64),
			l.URL,
			optFloat(l.Rating),
			optInt(l.Reviews),
			optFloat(l.DeliveryDays),
			optFloat(l.ReturnPolicy),
			l.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
		c.rows++
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Rows is the number of listing rows written so far.
func (c *CSVWriter) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close flushes the export and moves it over the target path. Calling it
// again is a no-op.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.abort()
		return fmt.Errorf("csv: flush: %w", err)
	}
	tmp := c.file.Name()
	err := c.file.Close()
	c.file = nil
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: close: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: move into %q: %w", c.path, err)
	}
	return nil
}

func (c *CSVWriter) abort() {
	_ = c.file.Close()
	_ = os.Remove(c.file.Name())
	c.file = nil
}

func optFloat(v models.OptFloat) string {
	if !v.Present() {
		return ""
	}
	return strconv.FormatFloat(v.Value, 'f', -1, 64)
}

func optInt(v models.OptInt) string {
	if !v.Valid {
		return ""
	}
	return strconv.Itoa(v.Value)
}
