package ach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRoutingNumber(t *testing.T) {
	for _, rt := range []string{"011000015", "021000021", "122105155", "091000019"} {
		assert.True(t, ValidRoutingNumber(rt), rt)
	}
	for _, rt := range []string{"", "01100001", "0110000150", "011000016", "01100001a", "123456789", "000000000", "130000006", "500000005"} {
		assert.False(t, ValidRoutingNumber(rt), rt)
	}
}

func TestCheckDigit(t *testing.T) {
	d, ok := CheckDigit("02100002")
	assert.True(t, ok)
	assert.Equal(t, byte('1'), d)

	d, ok = CheckDigit("01100001")
	assert.True(t, ok)
	assert.Equal(t, byte('5'), d)

	_, ok = CheckDigit("0210000")
	assert.False(t, ok)
}
