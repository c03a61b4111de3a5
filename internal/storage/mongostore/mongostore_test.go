package mongostore

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/model"
)

func TestFormatCursorRoundTripsThroughParseCursor(t *testing.T) {
	cursor := formatCursor(model.Timestamp(1716150000123))
	var got model.Timestamp
	n, err := parseCursor(cursor, &got)
	require.NoError(t, err)
	assert.Equal(t, len(cursor), n)
	assert.Equal(t, model.Timestamp(1716150000123), got)
}

func TestFormatCursorZero(t *testing.T) {
	assert.Equal(t, "0", formatCursor(0))
}

func TestDecimalStringMatchesStrconvBehavior(t *testing.T) {
	cases := []uint64{0, 1, 9, 10, 42, 999999999999}
	for _, n := range cases {
		got := decimalString(n)
		assert.Equal(t, strconv.FormatUint(n, 10), got)
		var parsed model.Timestamp
		_, err := parseCursor(got, &parsed)
		require.NoError(t, err)
		assert.Equal(t, n, uint64(parsed))
	}
}

func TestParseCursorRejectsNonDigits(t *testing.T) {
	var out model.Timestamp
	_, err := parseCursor("12a3", &out)
	assert.Error(t, err)
}

func TestParseCursorEmptyStringYieldsZero(t *testing.T) {
	var out model.Timestamp
	n, err := parseCursor("", &out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, model.Timestamp(0), out)
}

func TestToDocAndToModelRoundTrip(t *testing.T) {
	m := model.Message{
		MessageID:   "id1",
		SpaceID:     "space1",
		ChannelID:   "chan1",
		CreatedDate: 100,
		Content:     model.Content{Kind: model.ContentPost, SenderID: "a", Text: "hi"},
	}
	doc := toDoc(m)
	assert.Equal(t, m, doc.toModel())
}
