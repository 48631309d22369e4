package jt808

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterItem_Views(t *testing.T) {
	p := Uint32Param(ParamHeartbeatInterval, 30)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x1E}, p.Value)
	v, err := p.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(30), v)

	_, err = p.Uint16()
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
	_, err = p.Uint8()
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	w, err := Uint16Param(0x0081, 0x1234).Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), w)

	b, err := Uint8Param(ParamPlateColor, 2).Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), b)

	s, err := TextParam(ParamPlateNumber, "粤B12345")
	require.NoError(t, err)
	assert.Len(t, s.Value, 8)
	text, err := s.Text()
	require.NoError(t, err)
	assert.Equal(t, "粤B12345", text)
}

func TestParameterItem_EqualAndKey(t *testing.T) {
	a := Uint32Param(ParamMaxSpeed, 120)
	b := ParameterItem{ID: ParamMaxSpeed, Value: []byte{0x00, 0x00, 0x00, 0x78}}
	c := Uint32Param(ParamMaxSpeed, 100)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, "00000055:00000078", a.Key())

	set := map[string]ParameterItem{a.Key(): a, b.Key(): b, c.Key(): c}
	assert.Len(t, set, 2)
}

func TestQueryParametersResponse_Find(t *testing.T) {
	m := QueryParametersResponse{Items: []ParameterItem{Uint32Param(ParamHeartbeatInterval, 30), Uint8Param(ParamPlateColor, 1)}}
	p, ok := m.Find(ParamPlateColor)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, p.Value)
	_, ok = m.Find(ParamMaxSpeed)
	assert.False(t, ok)
}

func TestParameterItems_Wire(t *testing.T) {
	b, err := DefaultRegistry().EncodeBody(SetTerminalParameters{Items: []ParameterItem{Uint32Param(ParamHeartbeatInterval, 30)}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0x04, 0x00, 0x00, 0x00, 0x1E}, b)

	_, err = DefaultRegistry().EncodeBody(SetTerminalParameters{Items: []ParameterItem{{ID: 1, Value: make([]byte, 256)}}})
	assert.ErrorIs(t, err, ErrStringTooLong)

	_, err = DefaultRegistry().EncodeBody(QuerySpecifiedParameters{})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}
