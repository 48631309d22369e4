package jt808

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdapter_Sniff(t *testing.T) {
	a := NewAdapter(nil)
	assert.True(t, a.Sniff([]byte{0x7E, 0x00, 0x02}))
	assert.False(t, a.Sniff([]byte{0xFC, 0xFE}))
	assert.False(t, a.Sniff(nil))
	assert.Equal(t, "jt808", a.Name())
}

func TestAdapter_ProcessBytes(t *testing.T) {
	a := NewAdapter(NewCodec())
	a.SetLogger(zap.NewNop())

	var results []string
	a.SetDecodeHook(func(r string) { results = append(results, r) })

	var got []*Decoded
	a.Register(MsgTerminalHeartbeat, func(d *Decoded) error {
		got = append(got, d)
		return nil
	})

	hb, err := a.Frame(Header{PhoneNumber: "013812345678", SerialNumber: 5}, TerminalHeartbeat{})
	require.NoError(t, err)

	unknownHead, err := EncodeHeader(Header{MessageID: 0x0F0F, PhoneNumber: "013812345678"}, 1, Version2013)
	require.NoError(t, err)
	unknown := Pack(append(unknownHead, 0x01))

	badBody, err := EncodeHeader(Header{MessageID: MsgVehicleControl, PhoneNumber: "013812345678"}, 0, Version2013)
	require.NoError(t, err)
	short := Pack(badBody)

	var stream []byte
	stream = append(stream, unknown...)
	stream = append(stream, short...)
	stream = append(stream, hb...)

	require.NoError(t, a.ProcessBytes(stream))
	require.Len(t, got, 1)
	assert.Equal(t, uint16(5), got[0].Header.SerialNumber)
	assert.Equal(t, "013812345678", got[0].Header.PhoneNumber)
	assert.Equal(t, []string{ResultUnknown, ResultError, ResultOK}, results)
}

func TestAdapter_HandlerErrorAndFallback(t *testing.T) {
	a := NewAdapter(nil)
	boom := errors.New("boom")
	a.Register(MsgTerminalHeartbeat, func(*Decoded) error { return boom })

	var fallback []uint16
	a.SetFallback(func(d *Decoded) error {
		fallback = append(fallback, d.Header.MessageID)
		return nil
	})

	hb, err := a.Frame(Header{PhoneNumber: "013812345678"}, TerminalHeartbeat{})
	require.NoError(t, err)
	ev, err := a.Frame(Header{PhoneNumber: "013812345678"}, EventReport{EventID: 1})
	require.NoError(t, err)

	err = a.ProcessBytes(append(hb, ev...))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []uint16{MsgEventReport}, fallback)
}

func TestAdapter_BufferedFragments(t *testing.T) {
	a := NewAdapter(nil)
	var got []Message
	a.Register(MsgLocationReport, func(d *Decoded) error {
		got = append(got, d.Message)
		return nil
	})

	frags, err := a.Codec().EncodeFragments(Header{PhoneNumber: "013812345678"}, sampleLocation(), 16)
	require.NoError(t, err)
	for i, fr := range frags {
		require.NoError(t, a.ProcessBytes(Pack(fr)))
		if i < len(frags)-1 {
			assert.Empty(t, got)
		}
	}
	require.Len(t, got, 1)
	assert.Equal(t, sampleLocation(), got[0])
}
