package jt808

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationReport_Helpers(t *testing.T) {
	loc := sampleLocation()

	ts, err := loc.Timestamp()
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 3, 15, 0, 30, 0, 0, time.UTC)))
	assert.Equal(t, loc.Time, FormatTime(ts))

	mileage, ok := loc.Mileage()
	require.True(t, ok)
	assert.Equal(t, uint32(12345), mileage)

	sats, ok := loc.Satellites()
	require.True(t, ok)
	assert.Equal(t, uint8(12), sats)

	_, ok = loc.Extra(ExtraFuel)
	assert.False(t, ok)

	_, err = LocationReport{Time: "241399000000"}.Timestamp()
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

func TestLocationReport_ExtrasOrderPreserved(t *testing.T) {
	loc := LocationReport{Time: "240101000000", Extras: []LocationExtra{
		{ID: 0x31, Value: []byte{5}},
		{ID: 0x01, Value: []byte{0, 0, 0, 1}},
		{ID: 0x31, Value: []byte{6}},
	}}
	b, err := DefaultRegistry().EncodeBody(loc)
	require.NoError(t, err)
	m, err := DefaultRegistry().DecodeBody(MsgLocationReport, b)
	require.NoError(t, err)
	assert.Equal(t, loc.Extras, m.(LocationReport).Extras)
}

func TestLocationReport_Wire(t *testing.T) {
	b, err := DefaultRegistry().EncodeBody(LocationReport{
		Alarm:     1,
		Status:    2,
		Latitude:  0x01578C34,
		Longitude: 0x06CC5A3E,
		Altitude:  0x10,
		Speed:     0x20,
		Direction: 0x30,
		Time:      "240315083000",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02,
		0x01, 0x57, 0x8C, 0x34,
		0x06, 0xCC, 0x5A, 0x3E,
		0x00, 0x10,
		0x00, 0x20,
		0x00, 0x30,
		0x24, 0x03, 0x15, 0x08, 0x30, 0x00,
	}, b)
}
