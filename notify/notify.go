package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pevans/listwatch/record"
)

// Notifier receives each record of a cycle's delta set.
type Notifier interface {
	Notify(ctx context.Context, r record.Record) error
}

// Summary renders r as a single human readable line.
func Summary(r record.Record) string {
	var parts []string

	name := r.NameLocation
	if name == "" {
		name = r.ID
	}
	if r.Status != "" {
		name += " (" + r.Status + ")"
	}
	parts = append(parts, name)

	var params []string
	for _, key := range []string{"height", "weight"} {
		if value, ok := r.Data[key]; ok {
			params = append(params, value)
		}
	}
	if len(params) > 0 {
		parts = append(parts, strings.Join(params, ", "))
	}

	if len(r.Goals) > 0 {
		parts = append(parts, strings.Join(r.Goals, ", "))
	}
	if r.AdditionalPhotos != "" {
		parts = append(parts, "photos "+r.AdditionalPhotos)
	}
	parts = append(parts, r.ProfileURL)

	return strings.Join(parts, " | ")
}

// LogNotifier writes one log line per record.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a notifier writing to logger.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs r.
func (n *LogNotifier) Notify(_ context.Context, r record.Record) error {
	n.logger.Printf("INFO: Qualified record %s (score %.2f): %s", r.ID, r.Score, Summary(r))
	return nil
}

// Message is the JSON object written by JSONLinesNotifier.
type Message struct {
	record.Record
	NotifiedAt time.Time `json:"notified_at"`
	Text       string    `json:"text"`
}

// JSONLinesNotifier writes one JSON object per line, for a delivery process
// reading the stream.
type JSONLinesNotifier struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	now    func() time.Time
}

// NewJSONLinesNotifier creates a notifier writing to w.
func NewJSONLinesNotifier(w io.Writer) *JSONLinesNotifier {
	return &JSONLinesNotifier{
		enc: json.NewEncoder(w),
		now: time.Now,
	}
}

// OpenJSONLinesFile creates a notifier appending to the file at path.
func OpenJSONLinesFile(path string) (*JSONLinesNotifier, error) {
	// 0600: owner-only read/write
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification file: %w", err)
	}
	n := NewJSONLinesNotifier(f)
	n.closer = f
	return n, nil
}

// Notify writes r as one line.
func (n *JSONLinesNotifier) Notify(_ context.Context, r record.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	msg := Message{
		Record:     r,
		NotifiedAt: n.now().UTC(),
		Text:       Summary(r),
	}
	if err := n.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to write notification for %s: %w", r.ID, err)
	}
	return nil
}

// Close closes the underlying file when the notifier opened it.
func (n *JSONLinesNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer.Close()
}

// Multi fans a record out to several notifiers. Every notifier is tried;
// the errors are joined.
type Multi []Notifier

// Notify calls each notifier in order.
func (m Multi) Notify(ctx context.Context, r record.Record) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
