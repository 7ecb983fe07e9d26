package dt

import (
	"html"
	"strings"
	"time"

	"github.com/dshills/cmdembed/internal/command"
)

// Name is the command name.
const Name = "dt"

// Error messages.
const (
	ErrInvalidParameters = "_INVALID_DT_PARAMETERS_"
	ErrInvalidDate       = "_INVALID_DT_DATE_"
)

// DefaultFormat is used when no format is configured for the plain call.
const DefaultFormat = "2006-01-02 15:04"

// inputLayouts are tried in order when parsing content.
var inputLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// Handler implements the dt command.
type Handler struct {
	formats map[string]string
	now     func() time.Time
	loc     *time.Location
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the function used for blank content.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithLocation sets the location content without a zone is parsed in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		h.loc = loc
	}
}

// New creates the dt handler. formats maps a variant name to its format
// value; the key "" is the plain call.
func New(formats map[string]string, opts ...Option) *Handler {
	h := &Handler{
		formats: make(map[string]string, len(formats)+1),
		now:     time.Now,
		loc:     time.Local,
	}
	h.formats[""] = DefaultFormat
	for k, v := range formats {
		h.formats[k] = v
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Prepare implements command.Handler. The prepared value is the final
// markup, so the default render applies.
func (h *Handler) Prepare(req command.Request) (any, error) {
	variant, ok := variantOf(req)
	if !ok {
		return nil, &command.Error{Message: ErrInvalidParameters}
	}

	class, layout := splitFormat(h.formats[variant])

	text := req.Content
	if layout != "" {
		t, err := h.parse(req.Content)
		if err != nil {
			return nil, &command.Error{Message: ErrInvalidDate}
		}
		text = t.Format(layout)
	}
	text = html.EscapeString(text)

	switch {
	case req.Embedding == command.Block && class != "":
		return "<div class='" + html.EscapeString(class) + "'>" + text + "</div>", nil
	case req.Embedding == command.Block:
		return "<div>" + text + "</div>", nil
	case class != "":
		return "<span class='" + html.EscapeString(class) + "'>" + text + "</span>", nil
	default:
		return text, nil
	}
}

func (h *Handler) parse(content string) (time.Time, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return h.now(), nil
	}

	var err error
	for _, layout := range inputLayouts {
		t, perr := time.ParseInLocation(layout, content, h.loc)
		if perr == nil {
			return t, nil
		}
		err = perr
	}
	return time.Time{}, err
}

// variantOf returns the format key selected by the parameters: none for the
// plain format, or exactly one bare value.
func variantOf(req command.Request) (string, bool) {
	switch req.Params.Len() {
	case 0:
		return "", true
	case 1:
		p := req.Params.At(0)
		if p.Assigned {
			return "", false
		}
		return p.Value, true
	default:
		return "", false
	}
}

// splitFormat splits "[class|]layout".
func splitFormat(format string) (class, layout string) {
	if i := strings.IndexByte(format, '|'); i >= 0 {
		return format[:i], format[i+1:]
	}
	return "", format
}
