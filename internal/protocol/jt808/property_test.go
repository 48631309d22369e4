package jt808

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProperty_Accessors(t *testing.T) {
	p := Property(0x6405) // 0110 0100 0000 0101
	assert.Equal(t, 5, p.BodyLength())
	assert.Equal(t, uint8(1), p.Encryption())
	assert.True(t, p.Subpackage())
	assert.True(t, p.VersionFlag())
	assert.False(t, p.Reserved())
}

func TestProperty_BitIndependence(t *testing.T) {
	full := Property(0).
		WithBodyLength(MaxBodyLength).
		WithEncryption(0x07).
		WithSubpackage(true).
		WithVersionFlag(true).
		WithReserved(true)
	assert.Equal(t, Property(0xFFFF), full)

	tests := []struct {
		name string
		got  Property
		want Property
	}{
		{"清除长度", full.WithBodyLength(0), 0xFC00},
		{"清除加密", full.WithEncryption(0), 0xE3FF},
		{"清除分包", full.WithSubpackage(false), 0xDFFF},
		{"清除版本标识", full.WithVersionFlag(false), 0xBFFF},
		{"清除保留位", full.WithReserved(false), 0x7FFF},
		{"空值设置长度", Property(0).WithBodyLength(28), 0x001C},
		{"空值设置加密", Property(0).WithEncryption(EncryptionRSA), 0x0400},
		{"空值设置分包", Property(0).WithSubpackage(true), 0x2000},
		{"空值设置版本标识", Property(0).WithVersionFlag(true), 0x4000},
		{"长度超出10位截断", Property(0x2000).WithBodyLength(0x0401), 0x2001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestProperty_EachFieldRoundTrip(t *testing.T) {
	for n := 0; n <= MaxBodyLength; n += 97 {
		for e := uint8(0); e < 8; e++ {
			for _, sub := range []bool{false, true} {
				for _, ver := range []bool{false, true} {
					p := Property(0).WithBodyLength(n).WithEncryption(e).WithSubpackage(sub).WithVersionFlag(ver)
					assert.Equal(t, n, p.BodyLength())
					assert.Equal(t, e, p.Encryption())
					assert.Equal(t, sub, p.Subpackage())
					assert.Equal(t, ver, p.VersionFlag())
					assert.False(t, p.Reserved())
				}
			}
		}
	}
}

func TestProperty_String(t *testing.T) {
	assert.Equal(t, "0110010000000101", Property(0x6405).String())
	assert.Equal(t, "0000000000000000", Property(0).String())
}
