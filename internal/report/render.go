package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/Guliveer/procwatch/internal/models"
)

const (
	// MaxLabelLen is the longest string field, in bytes, written to a report.
	MaxLabelLen = 255

	// TruncationMarker ends every string field cut at MaxLabelLen.
	TruncationMarker = "..."
)

// Truncate bounds s to MaxLabelLen bytes, marker included, without splitting
// a UTF-8 sequence.
func Truncate(s string) string {
	if len(s) <= MaxLabelLen {
		return s
	}
	end := MaxLabelLen - len(TruncationMarker)
	// Back off at most one encoded rune. Invalid input may have no rune start
	// nearby; it is cut at the byte limit and escaped by the encoder.
	cut := end
	for i := 0; i < utf8.UTFMax && cut > 0 && !utf8.RuneStart(s[cut]); i++ {
		cut--
	}
	if !utf8.RuneStart(s[cut]) {
		cut = end
	}
	return s[:cut] + TruncationMarker
}

// Render writes doc as JSON. String fields are truncated first and then
// escaped by the encoder, so quotes and control characters in process names
// cannot break the document.
func Render(w io.Writer, doc interface{}, indent bool) error {
	bounded, err := bound(doc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(bounded); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// Marshal renders doc into a byte slice.
func Marshal(doc interface{}, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, doc, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bound returns a copy of doc with every process-derived string truncated.
func bound(doc interface{}) (interface{}, error) {
	switch d := doc.(type) {
	case models.ProcessSummaryReport:
		return d, nil
	case models.SystemReport:
		d.System = models.SystemBlock{
			Kernel:       Truncate(d.System.Kernel),
			Architecture: Truncate(d.System.Architecture),
			Hostname:     Truncate(d.System.Hostname),
		}
		processes := make([]models.ProcessEntry, len(d.Processes))
		for i, p := range d.Processes {
			p.Name = Truncate(p.Name)
			p.Cmdline = Truncate(p.Cmdline)
			processes[i] = p
		}
		d.Processes = processes
		return d, nil
	case models.ContainerReport:
		d.Containers = boundEntries(d.Containers)
		return d, nil
	case models.ConsumptionReport:
		d.LowConsumption = boundEntries(d.LowConsumption)
		d.HighConsumption = boundEntries(d.HighConsumption)
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported report type %T", doc)
	}
}

func boundEntries(entries []models.ContainerEntry) []models.ContainerEntry {
	out := make([]models.ContainerEntry, len(entries))
	for i, c := range entries {
		c.Name = Truncate(c.Name)
		c.Cmdline = Truncate(c.Cmdline)
		out[i] = c
	}
	return out
}
