package stream

import (
	"bufio"
	"io"
	"strings"
)

// Event is one decoded server-sent event.
type Event struct {
	// Type is the "event" field; empty when the server omitted it.
	Type string

	// Data is the "data" field. Multi-line data is joined with newlines.
	Data string
}

// parser decodes the text/event-stream wire format: "field: value" lines
// accumulate into an event, a blank line dispatches it, lines starting
// with ':' are comments.
type parser struct {
	scanner *bufio.Scanner
}

func newParser(r io.Reader) *parser {
	sc := bufio.NewScanner(r)
	// Snapshots for large installations exceed the default token size.
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &parser{scanner: sc}
}

// Next returns the next complete event, or io.EOF when the stream ends.
// An event with neither type nor data (trailing blank lines) is skipped.
func (p *parser) Next() (Event, error) {
	var (
		event    Event
		dataSeen bool
		data     []string
	)

	for p.scanner.Scan() {
		line := strings.TrimSuffix(p.scanner.Text(), "\r")

		if line == "" {
			if event.Type == "" && !dataSeen {
				continue
			}
			event.Data = strings.Join(data, "\n")
			return event, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event.Type = value
		case "data":
			dataSeen = true
			data = append(data, value)
		}
	}

	if err := p.scanner.Err(); err != nil {
		return Event{}, err
	}

	// A final event without a trailing blank line still counts.
	if event.Type != "" || dataSeen {
		event.Data = strings.Join(data, "\n")
		return event, nil
	}

	return Event{}, io.EOF
}
