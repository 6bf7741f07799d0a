package ezo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	assert.NoError(t, StatusSuccess.Err())
	assert.ErrorIs(t, StatusSyntaxError.Err(), ErrDeviceSyntax)
	assert.ErrorIs(t, StatusPending.Err(), ErrDeviceBusy)
	assert.ErrorIs(t, StatusNoData.Err(), ErrDeviceNoData)
	assert.ErrorIs(t, Status(3).Err(), ErrUnrecognizedStatus)

	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "unknown(3)", Status(3).String())
}

func TestCategory(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("read", CategoryRead.String())
	assert.Equal("internal", CategoryInternal.String())
	assert.Equal("unknown", Category(99).String())

	assert.False(CategorySleep.ExpectsResponse())
	assert.False(CategoryAddress.ExpectsResponse())
	assert.True(CategoryRead.ExpectsResponse())
	assert.True(CategoryInternal.ExpectsResponse())

	for c := CategoryRead; c < categoryCount; c++ {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(c, parsed)
	}

	_, err := ParseCategory("reboot")
	assert.ErrorIs(err, ErrUnknownCategory)
}
