package timeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Mode selects the output representation.
type Mode int

const (
	// ModeColumnar is fixed-width, human-readable output. It is the default.
	ModeColumnar Mode = iota
	// ModeDelimited is comma-delimited output.
	ModeDelimited
	// ModeBody re-emits Sleuth Kit body records, one per timeline slot.
	ModeBody
)

// ParseMode maps a mode name to a Mode. "" selects ModeColumnar.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "columnar":
		return ModeColumnar, nil
	case "delimited", "csv":
		return ModeDelimited, nil
	case "body", "mactime":
		return ModeBody, nil
	default:
		return 0, fmt.Errorf("unknown output mode: %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeColumnar:
		return "columnar"
	case ModeDelimited:
		return "delimited"
	case ModeBody:
		return "body"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Options are display settings. TrimName and the column layout only apply to
// ModeColumnar; AllFields only to ModeDelimited.
type Options struct {
	HideSize  bool
	HideTime  bool
	TrimName  int // characters of NAME to keep; negative keeps all
	AllFields bool
}

// DefaultOptions returns Options with name truncation disabled.
func DefaultOptions() Options {
	return Options{TrimName: -1}
}

// Date formats.
const (
	delimitedDateTime = "2006-01-02 15:04:05"
	delimitedDate     = "2006-01-02"
	columnarDateTime  = "Mon Jan 02 2006 15:04:05"
	columnarDate      = "Mon Jan 02 2006"
)

// Column widths for ModeColumnar.
const (
	widthDateTime = len(columnarDateTime)
	widthDate     = len(columnarDate)
	widthSize     = 10
	widthPerms    = 12
	widthOwner    = 33
	widthInode    = 20
)

// Renderer drains an Index in key order and writes one line per entry.
type Renderer struct {
	mode   Mode
	opts   Options
	kinds  KindSet
	conv   Converter
	logger Logger
}

// NewRenderer creates a Renderer. kinds must be the set the index was built
// with so flags match the slots that were inserted.
func NewRenderer(mode Mode, opts Options, kinds KindSet, conv Converter, logger Logger) *Renderer {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Renderer{
		mode:   mode,
		opts:   opts,
		kinds:  kinds,
		conv:   conv,
		logger: logger,
	}
}

// Render writes the banner (except in ModeBody) and every index entry to w.
// It returns the number of rows written.
func (r *Renderer) Render(w io.Writer, idx Index) (int, error) {
	bw := bufio.NewWriter(w)

	if r.mode != ModeBody {
		if _, err := fmt.Fprintf(bw, "Time Zone: %q\n", r.conv.String()); err != nil {
			return 0, fmt.Errorf("writing banner: %w", err)
		}
	}

	rows := 0
	first := true
	var lastKey int64
	err := idx.Each(func(key int64, rec Record) error {
		var err error
		switch r.mode {
		case ModeDelimited:
			err = r.writeDelimited(bw, key, rec)
		case ModeBody:
			err = r.writeBody(bw, key, rec)
		default:
			repeat := !first && key == lastKey
			err = r.writeColumnar(bw, key, rec, repeat)
		}
		if err != nil {
			return err
		}
		first, lastKey = false, key
		rows++
		return nil
	})
	if err != nil {
		return rows, fmt.Errorf("rendering timeline: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return rows, fmt.Errorf("flushing output: %w", err)
	}
	return rows, nil
}

// formatKey renders the date column. Conversion failures are logged and
// render as an empty field.
func (r *Renderer) formatKey(key int64, layout, unknown string) string {
	if key == Sentinel {
		return unknown
	}
	t, err := r.conv.Convert(key)
	if err != nil {
		r.logger.Error("date conversion failed", "key", key, "error", err)
		return ""
	}
	return t.Format(layout)
}

func (r *Renderer) writeDelimited(w io.Writer, key int64, rec Record) error {
	layout := delimitedDateTime
	if r.opts.HideTime {
		layout = delimitedDate
	}

	cols := make([]string, 0, 9)
	cols = append(cols, r.formatKey(key, layout, "Unknown"), rec.Field(FieldMD5))
	if !r.opts.HideSize {
		cols = append(cols, rec.Field(FieldSize))
	}
	cols = append(cols,
		Flags(rec, key, r.kinds),
		rec.Field(FieldPerms),
		rec.Field(FieldUID),
		rec.Field(FieldGID),
		rec.Field(FieldInode),
		rec.Field(FieldName),
	)
	if r.opts.AllFields {
		if fields := rec.Fields(); len(fields) > BodyFieldCount {
			cols = append(cols, fields[BodyFieldCount:]...)
		}
	}

	_, err := io.WriteString(w, strings.Join(cols, ",")+"\n")
	return err
}

func (r *Renderer) writeBody(w io.Writer, key int64, rec Record) error {
	stamp := func(k Kind) string {
		if matchesKey(rec, k, key, r.kinds) {
			return rec.Field(k.Field())
		}
		return ""
	}

	cols := []string{
		rec.Field(FieldMD5),
		rec.Field(FieldName),
		rec.Field(FieldInode),
		rec.Field(FieldPerms),
		rec.Field(FieldUID),
		rec.Field(FieldGID),
		rec.Field(FieldSize),
		stamp(Accessed),
		stamp(Modified),
		stamp(Changed),
		stamp(Birthed),
	}
	_, err := io.WriteString(w, strings.Join(cols, "|")+"\n")
	return err
}

func (r *Renderer) writeColumnar(w io.Writer, key int64, rec Record, repeat bool) error {
	width, layout, unknown := widthDateTime, columnarDateTime, "Unknown Date/Time"
	if r.opts.HideTime {
		width, layout, unknown = widthDate, columnarDate, "Unknown Date"
	}

	date := ""
	if !repeat {
		date = r.formatKey(key, layout, unknown)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%*s ", width, date)
	if !r.opts.HideSize {
		fmt.Fprintf(&sb, "%*s ", widthSize, rec.Field(FieldSize))
	}
	sb.WriteString(Flags(rec, key, r.kinds))
	sb.WriteByte(' ')
	fmt.Fprintf(&sb, "%*s ", widthPerms, rec.Field(FieldPerms))
	fmt.Fprintf(&sb, "%*s ", widthOwner, rec.Field(FieldUID))
	fmt.Fprintf(&sb, "%*s ", widthOwner, rec.Field(FieldGID))
	fmt.Fprintf(&sb, "%*s ", widthInode, rec.Field(FieldInode))
	sb.WriteString(trim(rec.Field(FieldName), r.opts.TrimName))
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

// trim keeps the first n characters of s. A negative n keeps everything.
func trim(s string, n int) string {
	if n < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
