package comments

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the segment reply and of each comment element.
const (
	fieldElems = 1

	fieldProgress = 2
	fieldMode     = 3
	fieldFontSize = 4
	fieldColor    = 5
	fieldContent  = 7
	fieldCtime    = 8
)

var errMalformed = errors.New("malformed binary comment")

// DecodeBinary decodes one or more concatenated binary comment segments.
// Concatenated segments merge naturally because elements are a repeated field.
func DecodeBinary(data []byte, baseSize float64) (Decoded, error) {
	if looksLikeXML(bytes.TrimPrefix(data, utf8BOM)) {
		return Decoded{}, errors.Wrap(ErrInputType, "binary decoder was given text data")
	}
	var out Decoded
	idx := 0
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			out.Warnings = append(out.Warnings, Warning{Index: idx, Err: errors.Wrapf(errMalformed, "segment tag: %v", protowire.ParseError(n))})
			break
		}
		data = data[n:]
		if num != fieldElems || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				out.Warnings = append(out.Warnings, Warning{Index: idx, Err: errors.Wrapf(errMalformed, "segment field %d: %v", num, protowire.ParseError(n))})
				break
			}
			data = data[n:]
			continue
		}
		msg, n := protowire.ConsumeBytes(data)
		if n < 0 {
			out.Warnings = append(out.Warnings, Warning{Index: idx, Err: errors.Wrapf(errMalformed, "element length: %v", protowire.ParseError(n))})
			break
		}
		data = data[n:]
		i := idx
		idx++
		e, err := parseElem(msg)
		if err != nil {
			out.Warnings = append(out.Warnings, Warning{Index: i, Raw: fmt.Sprintf("%x", msg), Err: err})
			continue
		}
		e.index = i
		c, err := build(e, baseSize)
		out.add(i, e.text, c, err)
	}
	return out, nil
}

func parseElem(msg []byte) (entry, error) {
	var e entry
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return e, errors.Wrap(errMalformed, protowire.ParseError(n).Error())
		}
		msg = msg[n:]
		switch {
		case typ == protowire.VarintType && num != fieldContent:
			v, n := protowire.ConsumeVarint(msg)
			if n < 0 {
				return e, errors.Wrapf(errMalformed, "field %d: %v", num, protowire.ParseError(n))
			}
			msg = msg[n:]
			switch num {
			case fieldProgress:
				e.timeline = float64(int32(v)) / 1000
			case fieldMode:
				e.mode = int(int32(v))
			case fieldFontSize:
				e.size = int(int32(v))
			case fieldColor:
				e.color = int64(uint32(v))
			case fieldCtime:
				e.timestamp = int64(v)
			}
		case typ == protowire.BytesType && num == fieldContent:
			b, n := protowire.ConsumeBytes(msg)
			if n < 0 {
				return e, errors.Wrapf(errMalformed, "content: %v", protowire.ParseError(n))
			}
			msg = msg[n:]
			e.text = string(b)
		default:
			n := protowire.ConsumeFieldValue(num, typ, msg)
			if n < 0 {
				return e, errors.Wrapf(errMalformed, "field %d: %v", num, protowire.ParseError(n))
			}
			msg = msg[n:]
		}
	}
	return e, nil
}
