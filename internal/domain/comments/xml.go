package comments

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/forPelevin/danmaku2ass/internal/types"
)

var (
	utf8BOM = []byte{0xef, 0xbb, 0xbf}
	xmlDecl = regexp.MustCompile(`^\s*<\?xml\b[^?]*?\bversion\s*=\s*["']([^"']*)["']`)
)

// DecodeXML decodes a legacy XML comment list. The document version selects
// the field layout of the p attribute.
func DecodeXML(data []byte, baseSize float64) (Decoded, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !looksLikeXML(data) {
		return Decoded{}, errors.Wrap(ErrInputType, "xml decoder was given binary data")
	}
	data = cleanXML(data)

	version := ""
	if m := xmlDecl.FindSubmatchIndex(data); m != nil {
		version = string(data[m[2]:m[3]])
		if err := checkVersion(version); err != nil {
			return Decoded{}, err
		}
		if version != "1.0" {
			// encoding/xml refuses any declaration other than 1.0.
			patched := make([]byte, 0, len(data))
			patched = append(patched, data[:m[2]]...)
			patched = append(patched, "1.0"...)
			data = append(patched, data[m[3]:]...)
		}
	}

	var out Decoded
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	rootSeen := false
	idx := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, errors.Wrap(err, "parse comment xml")
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			rootSeen = true
			if version == "" {
				version = attr(se, "version")
				if version == "" {
					version = "1.0"
				}
				if err := checkVersion(version); err != nil {
					return out, err
				}
			}
		}
		if se.Name.Local != "d" {
			continue
		}
		var el struct {
			P    string `xml:"p,attr"`
			Text string `xml:",chardata"`
		}
		if err := dec.DecodeElement(&el, &se); err != nil {
			return out, errors.Wrap(err, "parse comment element")
		}
		i := idx
		idx++
		if el.Text == "" {
			continue
		}
		c, err := parseXMLEntry(version, el.P, el.Text, i, baseSize)
		out.add(i, fmt.Sprintf(`<d p="%s">%s</d>`, el.P, el.Text), c, err)
	}
	return out, nil
}

func checkVersion(v string) error {
	switch v {
	case "1.0", "2.0":
		return nil
	}
	return errors.Wrapf(ErrUnsupportedVersion, "version %q", v)
}

func parseXMLEntry(version, p, text string, i int, baseSize float64) (c types.Comment, err error) {
	f := strings.Split(p, ",")
	var e entry
	switch version {
	case "1.0":
		if len(f) < 5 {
			return c, errors.Wrapf(errTooFewField, "got %d, want at least 5", len(f))
		}
		if e.timeline, err = parseFloat(f[0]); err != nil {
			return c, err
		}
		err = parseInts(f[1:5], &e.mode, &e.size, &e.color, &e.timestamp)
	case "2.0":
		if len(f) < 7 {
			return c, errors.Wrapf(errTooFewField, "got %d, want at least 7", len(f))
		}
		ms, perr := parseFloat(f[2])
		if perr != nil {
			return c, perr
		}
		e.timeline = ms / 1000
		err = parseInts(f[3:7], &e.mode, &e.size, &e.color, &e.timestamp)
	default:
		return c, errors.Wrapf(ErrUnsupportedVersion, "version %q", version)
	}
	if err != nil {
		return c, err
	}
	e.index = i
	e.text = text
	return build(e, baseSize)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "field %q", s)
	}
	return v, nil
}

// parseInts parses fields into mode, size, color and timestamp in that order.
func parseInts(fields []string, mode, size *int, color, timestamp *int64) error {
	vals := make([]int64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "field %q", s)
		}
		vals[i] = v
	}
	*mode = int(vals[0])
	*size = int(vals[1])
	*color = vals[2]
	*timestamp = vals[3]
	return nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// looksLikeXML checks for a markup start. A binary segment can also begin
// with a newline byte followed by '<' as a length, so the byte after it must
// open a name, declaration or comment.
func looksLikeXML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) < 2 || trimmed[0] != '<' {
		return false
	}
	c := trimmed[1]
	return c == '?' || c == '!' || c == '_' || c == ':' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// cleanXML drops code points that XML 1.0 forbids; comment text from the
// platform occasionally carries raw control characters.
func cleanXML(data []byte) []byte {
	return bytes.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20 || r == 0xfffe || r == 0xffff:
			return -1
		}
		return r
	}, data)
}
