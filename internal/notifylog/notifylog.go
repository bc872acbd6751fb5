// Package notifylog records policy-change notifications delivered to clients
// and stores them as CSV.
package notifylog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lab-banks/banks/internal/bank"
	"github.com/lab-banks/banks/internal/client"
	"github.com/lab-banks/banks/internal/model"
)

// Entry is one delivered notification.
type Entry struct {
	Date       time.Time
	BankID     string
	Change     model.ChangeKind
	Subscriber string
	Client     string
}

// Header is the CSV header for a notification log.
const Header = "date,bank_id,change,subscriber_id,client"

const (
	numFields     = 5
	colDate       = 0
	colBankID     = 1
	colChange     = 2
	colSubscriber = 3
	colClient     = 4
)

// Log collects entries in delivery order. The zero value is not usable; call New.
type Log struct {
	now     func() time.Time
	entries []Entry
}

// New creates a log that stamps entries with now().
func New(now func() time.Time) *Log {
	return &Log{now: now}
}

// Entries returns the recorded entries.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Subscriber returns a bank subscriber that acts as c and records what c is
// sent.
func (l *Log) Subscriber(c *client.Client) bank.Subscriber {
	return &subscriber{log: l, client: c}
}

type subscriber struct {
	log    *Log
	client *client.Client
}

func (s *subscriber) SubscriberID() string { return s.client.SubscriberID() }

func (s *subscriber) Notified(n model.Notification) {
	s.client.Notified(n)
	s.log.entries = append(s.log.entries, Entry{
		Date:       s.log.now(),
		BankID:     n.BankID,
		Change:     n.Change,
		Subscriber: s.client.SubscriberID(),
		Client:     s.client.FullName(),
	})
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colDate] = e.Date.Format(time.DateOnly)
	row[colBankID] = e.BankID
	row[colChange] = string(e.Change)
	row[colSubscriber] = e.Subscriber
	row[colClient] = e.Client
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	date, err := time.Parse(time.DateOnly, record[colDate])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	return Entry{
		Date:       date,
		BankID:     record[colBankID],
		Change:     model.ChangeKind(record[colChange]),
		Subscriber: record[colSubscriber],
		Client:     record[colClient],
	}, nil
}

// Write writes entries to w (including header).
func Write(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	return cw.Error()
}

// Append writes entries to the file at path, creating it with a header if needed.
func Append(path string, entries []Entry) error {
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening notification log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	return cw.Error()
}

// Read returns all entries from the file at path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening notification log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading notification log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
