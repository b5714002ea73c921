// Package format выводит историю по шаблону --format.
package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gophistory/internal/domain/history"
)

const (
	DefaultRegular = "{time}\t{command}\t{duration}"
	DefaultHuman   = "{time} · {duration}\t{command}"

	timeLayout = "2006-01-02 15:04:05"
)

var (
	ErrUnknownKey = errors.New("unknown format key")
	ErrUnclosed   = errors.New("unclosed brace in format")
)

// Mode режим вывода history list
type Mode int

const (
	Regular Mode = iota
	Human
	CmdOnly
)

// ModeFromFlags --human важнее --cmd-only
func ModeFromFlags(human, cmdOnly bool) Mode {
	switch {
	case human:
		return Human
	case cmdOnly:
		return CmdOnly
	}
	return Regular
}

// Options параметры вывода
type Options struct {
	Mode   Mode
	Format string
	Print0 bool
	// Escape экранирует управляющие символы команды, включается для терминала
	Escape   bool
	Location *time.Location
	Now      time.Time
}

type segment struct {
	literal string
	key     string
}

// Template разобранная строка формата
type Template struct {
	segments []segment
}

// Parse разбирает шаблон. Литеральные фигурные скобки удваиваются: {{ и }}.
// Последовательность \t заменяется на табуляцию.
func Parse(format string) (*Template, error) {
	format = strings.ReplaceAll(format, `\t`, "\t")

	var (
		t   Template
		lit strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(format[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w at %d", ErrUnclosed, i)
			}
			key := format[i+1 : i+1+end]
			if !knownKey(key) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
			}
			flush()
			t.segments = append(t.segments, segment{key: key})
			i += end + 1
		case c == '}':
			return nil, fmt.Errorf("%w: unmatched } at %d", ErrUnclosed, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return &t, nil
}

func knownKey(key string) bool {
	switch key {
	case "command", "directory", "duration", "exit", "time", "relativetime", "host", "user":
		return true
	}
	return false
}

// Execute подставляет поля записи
func (t *Template) Execute(h *history.History, opts Options) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.key == "" {
			b.WriteString(s.literal)
			continue
		}
		b.WriteString(value(h, s.key, opts))
	}
	return b.String()
}

func value(h *history.History, key string, opts Options) string {
	switch key {
	case "command":
		cmd := strings.TrimSpace(h.Command)
		if opts.Escape {
			return EscapeControl(cmd)
		}
		return cmd
	case "directory":
		return strings.TrimSpace(h.Cwd)
	case "duration":
		return Duration(time.Duration(max(h.Duration, 0)))
	case "exit":
		return fmt.Sprint(h.Exit)
	case "time":
		loc := opts.Location
		if loc == nil {
			loc = time.Local
		}
		return h.Timestamp.In(loc).Format(timeLayout)
	case "relativetime":
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		return Duration(max(now.Sub(h.Timestamp), 0))
	case "host":
		return h.Host()
	case "user":
		return h.User()
	}
	return ""
}

// Render пишет записи в w по одной на строку (или через NUL при Print0)
func Render(w io.Writer, entries []*history.History, opts Options) error {
	var (
		t   *Template
		err error
	)

	switch opts.Mode {
	case CmdOnly:
		t = &Template{segments: []segment{{key: "command"}}}
	case Human:
		t, err = Parse(orDefault(opts.Format, DefaultHuman))
	default:
		t, err = Parse(orDefault(opts.Format, DefaultRegular))
	}
	if err != nil {
		return err
	}

	terminator := "\n"
	if opts.Print0 {
		terminator = "\x00"
	}

	bw := bufio.NewWriter(w)
	for _, h := range entries {
		if _, err := bw.WriteString(t.Execute(h, opts) + terminator); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func orDefault(format, def string) string {
	if format == "" {
		return def
	}
	return format
}

// Duration форматирует длительность одной наибольшей единицей: 3d, 2h, 5m, 12s, 150ms, 42μs, 7ns
func Duration(d time.Duration) string {
	const day = 24 * time.Hour

	units := []struct {
		size   time.Duration
		suffix string
	}{
		{day, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
		{time.Millisecond, "ms"},
		{time.Microsecond, "μs"},
	}

	for _, u := range units {
		if d >= u.size {
			return fmt.Sprintf("%d%s", d/u.size, u.suffix)
		}
	}
	return fmt.Sprintf("%dns", d)
}

// EscapeControl заменяет управляющие символы на экранированные последовательности
func EscapeControl(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
