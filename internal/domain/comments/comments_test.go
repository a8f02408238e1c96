package comments

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forPelevin/danmaku2ass/internal/types"
)

func TestDecodeXML_V1Example(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?><i><d p="1.5,1,25,16777215,1600000000,0,0,0">hello</d></i>`
	got, err := DecodeXML([]byte(doc), 25)
	require.NoError(t, err)
	require.Empty(t, got.Warnings)
	require.Len(t, got.Comments, 1)

	c := got.Comments[0]
	require.Equal(t, 1.5, c.Timeline)
	require.Equal(t, types.Scroll, c.Mode)
	require.Equal(t, uint32(0xFFFFFF), c.Color)
	require.Equal(t, 25.0, c.FontSize)
	require.Equal(t, "hello", c.Text)
	require.Equal(t, int64(1600000000), c.Timestamp)
	require.Equal(t, 25.0, c.Height)
	require.Equal(t, 125.0, c.Width)
}

func TestDecodeXML_V2Layout(t *testing.T) {
	doc := `<?xml version="2.0" encoding="UTF-8"?><i>` +
		`<d p="123,0,2500,5,18,255,1600000001">bottom</d>` +
		`</i>`
	got, err := DecodeXML([]byte(doc), 25)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)

	c := got.Comments[0]
	require.Equal(t, 2.5, c.Timeline)
	require.Equal(t, types.Bottom, c.Mode)
	require.Equal(t, uint32(255), c.Color)
	require.InDelta(t, 18.0, c.FontSize, 1e-9)
	require.Equal(t, int64(1600000001), c.Timestamp)
}

func TestDecodeXML_ScalesFontSizeAndTranslatesNewlines(t *testing.T) {
	doc := `<i><d p="0,1,25,0,0">ab/nlonger</d></i>`
	got, err := DecodeXML([]byte(doc), 50)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)

	c := got.Comments[0]
	require.Equal(t, "ab\nlonger", c.Text)
	require.Equal(t, 50.0, c.FontSize)
	require.Equal(t, 100.0, c.Height)
	require.Equal(t, 300.0, c.Width)
}

func TestDecodeXML_PositionedKeepsRawText(t *testing.T) {
	doc := `<i><d p="3,7,30,16777215,0">[0,0,"1",4,"a/nb"]</d></i>`
	got, err := DecodeXML([]byte(doc), 50)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)

	c := got.Comments[0]
	require.Equal(t, types.Positioned, c.Mode)
	require.Equal(t, `[0,0,"1",4,"a/nb"]`, c.Text)
	require.Equal(t, 30.0, c.FontSize)
	require.JSONEq(t, c.Text, string(c.Params))
}

func TestDecodeXML_SkipsMalformedEntries(t *testing.T) {
	doc := `<i>` +
		`<d p="1,1,25">short</d>` +
		`<d p="x,1,25,0,0">nan</d>` +
		`<d p="1,9,25,0,0">unknown</d>` +
		`<d p="1,8,25,0,0">scripted</d>` +
		`<d p="2,1,25,0,0">ok</d>` +
		`<d p="3,1,25,0,0"></d>` +
		`</i>`
	got, err := DecodeXML([]byte(doc), 25)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	require.Equal(t, "ok", got.Comments[0].Text)
	require.Equal(t, 4, got.Comments[0].Sequence)
	require.Len(t, got.Warnings, 3)
	require.Equal(t, 1, got.Scripted)
	require.True(t, errors.Is(got.Warnings[2].Err, errUnknownMode))
}

func TestDecodeXML_RejectsUnknownVersion(t *testing.T) {
	_, err := DecodeXML([]byte(`<?xml version="3.0"?><i></i>`), 25)
	require.True(t, errors.Is(err, ErrUnsupportedVersion))

	_, err = DecodeXML([]byte(`<i version="1.5"><d p="1,1,25,0,0">x</d></i>`), 25)
	require.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestDecodeXML_RootVersionAttribute(t *testing.T) {
	got, err := DecodeXML([]byte(`<i version="2.0"><d p="0,0,1000,1,25,0,0">x</d></i>`), 25)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	require.Equal(t, 1.0, got.Comments[0].Timeline)
}

func TestDecodeXML_DropsControlCharacters(t *testing.T) {
	doc := "\ufeff<i><d p=\"0,1,25,0,0\">a\x08b</d></i>"
	got, err := DecodeXML([]byte(doc), 25)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	require.Equal(t, "ab", got.Comments[0].Text)
}

func TestDecodeXML_RejectsBinary(t *testing.T) {
	_, err := DecodeXML(segment(elemMsg(1000, 1, 25, 0, "x", 0)), 25)
	require.True(t, errors.Is(err, ErrInputType))
}

func TestDecodeBinary(t *testing.T) {
	data := segment(
		elemMsg(1500, 1, 25, 0xffffff, "hello", 1600000000),
		elemMsg(500, 8, 25, 0, "script", 1),
		elemMsg(2000, 4, 36, 0xff0000, "top/nline", 1600000002),
	)
	got, err := DecodeBinary(data, 25)
	require.NoError(t, err)
	require.Empty(t, got.Warnings)
	require.Equal(t, 1, got.Scripted)
	require.Len(t, got.Comments, 2)

	require.Equal(t, 1.5, got.Comments[0].Timeline)
	require.Equal(t, types.Scroll, got.Comments[0].Mode)
	require.Equal(t, 0, got.Comments[0].Sequence)

	top := got.Comments[1]
	require.Equal(t, types.Top, top.Mode)
	require.Equal(t, "top\nline", top.Text)
	require.Equal(t, 36.0, top.FontSize)
	require.Equal(t, 72.0, top.Height)
	require.Equal(t, 2, top.Sequence)
}

func TestDecodeBinary_ConcatenatedSegments(t *testing.T) {
	a := segment(elemMsg(1000, 1, 25, 0, "a", 0))
	b := segment(elemMsg(2000, 1, 25, 0, "b", 0))
	got, err := DecodeBinary(append(a, b...), 25)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	require.Equal(t, "b", got.Comments[1].Text)
}

func TestDecodeBinary_SkipsUnknownModeAndFields(t *testing.T) {
	var extra []byte
	extra = protowire.AppendTag(extra, 2, protowire.VarintType)
	extra = protowire.AppendVarint(extra, 7)
	data := append(extra, segment(elemMsg(0, 3, 25, 0, "bad", 0), elemMsg(0, 6, 25, 0, "rev", 0))...)

	got, err := DecodeBinary(data, 25)
	require.NoError(t, err)
	require.Len(t, got.Warnings, 1)
	require.Len(t, got.Comments, 1)
	require.Equal(t, types.ScrollReversed, got.Comments[0].Mode)
}

func TestDecodeBinary_RejectsText(t *testing.T) {
	_, err := DecodeBinary([]byte(`<?xml version="1.0"?><i></i>`), 25)
	require.True(t, errors.Is(err, ErrInputType))
}

func TestModeMappingTable(t *testing.T) {
	want := map[int]types.Category{
		1: types.Scroll,
		4: types.Top,
		5: types.Bottom,
		6: types.ScrollReversed,
		7: types.Positioned,
		8: types.Dropped,
	}
	for code, cat := range want {
		t.Run(fmt.Sprintf("v1/%d", code), func(t *testing.T) {
			c, err := parseXMLEntry("1.0", fmt.Sprintf("1,%d,25,0,0", code), "x", 0, 25)
			require.NoError(t, err)
			require.Equal(t, cat, c.Mode)
		})
		t.Run(fmt.Sprintf("v2/%d", code), func(t *testing.T) {
			c, err := parseXMLEntry("2.0", fmt.Sprintf("0,0,1000,%d,25,0,0", code), "x", 0, 25)
			require.NoError(t, err)
			require.Equal(t, cat, c.Mode)
		})
		t.Run(fmt.Sprintf("binary/%d", code), func(t *testing.T) {
			e, err := parseElem(elemMsg(1000, code, 25, 0, "x", 0))
			require.NoError(t, err)
			c, err := build(e, 25)
			require.NoError(t, err)
			require.Equal(t, cat, c.Mode)
		})
	}
	_, err := ModeCategory(2)
	require.Error(t, err)
}

func TestMeasure(t *testing.T) {
	lines, longest := Measure("弾幕\nabc")
	require.Equal(t, 2, lines)
	require.Equal(t, 3, longest)
}

func elemMsg(progress, mode, size int, color uint32, content string, ctime int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, fieldProgress, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(progress)))
	b = protowire.AppendTag(b, fieldMode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(mode))
	b = protowire.AppendTag(b, fieldFontSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(size))
	b = protowire.AppendTag(b, fieldColor, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(color))
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendString(b, "deadbeef")
	b = protowire.AppendTag(b, fieldContent, protowire.BytesType)
	b = protowire.AppendString(b, content)
	b = protowire.AppendTag(b, fieldCtime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ctime))
	return b
}

func segment(elems ...[]byte) []byte {
	var b []byte
	for _, e := range elems {
		b = protowire.AppendTag(b, fieldElems, protowire.BytesType)
		b = protowire.AppendBytes(b, e)
	}
	return b
}

func TestDecodeBinary_ElementLengthLooksLikeMarkup(t *testing.T) {
	content := "01234567890123456789012345678901"
	elem := elemMsg(1000, 1, 25, 0xffffff, content, 0)
	require.Equal(t, byte('<'), segment(elem)[1])

	got, err := DecodeBinary(segment(elem), 25)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	require.Equal(t, content, got.Comments[0].Text)
}
