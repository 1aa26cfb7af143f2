// SPDX-License-Identifier: GPL-3.0-only

// Package printer renders search results for the CLI.
package printer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/ty"
)

// Options control how log records are rendered.
type Options struct {
	JSON       bool
	ShowFields bool
	Timestamp  string
}

// Printer writes log records to an output stream.
type Printer struct {
	out  io.Writer
	opts Options
}

func New(out io.Writer, opts Options) *Printer {
	if opts.Timestamp == "" {
		opts.Timestamp = ty.Format
	}
	return &Printer{out: out, opts: opts}
}

// Print renders every record, one line each in text mode.
func (p *Printer) Print(records []client.LogRecord) error {
	if p.opts.JSON {
		data, err := ty.ToJSONStringIndent(records)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.out, data)
		return err
	}

	for _, record := range records {
		if err := p.printRecord(record); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printRecord(record client.LogRecord) error {
	level := strings.ToUpper(record.Level)
	if level == "" {
		level = "INFO"
	}

	ts := ""
	if !record.Timestamp.IsZero() {
		ts = record.Timestamp.Format(p.opts.Timestamp) + " "
	}

	if _, err := fmt.Fprintf(p.out, "%s%s %s\n",
		ts, levelColor(level).Sprintf("%-5s", level), record.Message); err != nil {
		return err
	}

	if p.opts.ShowFields && len(record.Fields) > 0 {
		keys := make([]string, 0, len(record.Fields))
		for key := range record.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if _, err := fmt.Fprintf(p.out, "    %s=%v\n", key, record.Fields[key]); err != nil {
				return err
			}
		}
	}
	return nil
}
