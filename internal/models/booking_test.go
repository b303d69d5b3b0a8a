package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusNames(t *testing.T) {
	assert.Equal(t, "CANCELLED", BookingCancelled.String())
	assert.Equal(t, "APPROVED", BookingApproved.String())
	assert.Equal(t, "PENDING", BookingPending.String())
	assert.Equal(t, "REJECTED", BookingRejected.String())
	assert.Equal(t, "UNKNOWN(7)", BookingStatus(7).String())
}

func TestBookingStatusValid(t *testing.T) {
	assert.True(t, BookingPending.Valid())
	assert.False(t, BookingStatus(-1).Valid())
	assert.False(t, BookingStatus(4).Valid())
}

func TestParseBookingStatus(t *testing.T) {
	status, ok := ParseBookingStatus("APPROVED")
	require.True(t, ok)
	assert.Equal(t, BookingApproved, status)

	_, ok = ParseBookingStatus("approved")
	assert.False(t, ok)
}

func TestBookingStatusJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(BookingRejected)
	require.NoError(t, err)
	assert.Equal(t, `"REJECTED"`, string(data))

	var byName BookingStatus
	require.NoError(t, json.Unmarshal([]byte(`"PENDING"`), &byName))
	assert.Equal(t, BookingPending, byName)

	var byValue BookingStatus
	require.NoError(t, json.Unmarshal([]byte(`1`), &byValue))
	assert.Equal(t, BookingApproved, byValue)

	var invalid BookingStatus
	assert.Error(t, json.Unmarshal([]byte(`"DECLINED"`), &invalid))
	assert.Error(t, json.Unmarshal([]byte(`9`), &invalid))
}

func TestBookingStatusMarshalInsideStruct(t *testing.T) {
	booking := Booking{ID: "b1", Status: BookingPending}
	data, err := json.Marshal(booking)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"PENDING"`)
}
