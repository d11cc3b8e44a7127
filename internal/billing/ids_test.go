package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBillNo(t *testing.T) {
	assert.Equal(t, "NB001", FormatBillNo(1))
	assert.Equal(t, "NB042", FormatBillNo(42))
	assert.Equal(t, "NB999", FormatBillNo(999))
	assert.Equal(t, "NB1000", FormatBillNo(1000))
}

func TestParseBillNo(t *testing.T) {
	n, err := ParseBillNo("NB007")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	for _, bad := range []string{"", "NB", "RB007", "NB7a", "7", "nb007"} {
		_, err := ParseBillNo(bad)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}

func TestNormalizeBillNo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7", "NB007"},
		{"007", "NB007"},
		{"nb7", "NB007"},
		{"NB007", "NB007"},
		{" Nb0007 ", "NB007"},
		{"1234", "NB1234"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeBillNo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "NB", "RB007", "abc", "-1"} {
		_, err := NormalizeBillNo(bad)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}

func TestDerivedIdentifiers_RoundTrip(t *testing.T) {
	for _, billNo := range []string{"NB001", "NB007", "NB999", "NB1000"} {
		returnID, err := ReturnIDFor(billNo)
		require.NoError(t, err)
		assert.Equal(t, "RB"+billNo[2:], returnID)

		back, err := BillNoFromReturnID(returnID)
		require.NoError(t, err)
		assert.Equal(t, billNo, back)

		updatedID, err := UpdatedIDFor(billNo)
		require.NoError(t, err)
		assert.Equal(t, "UB"+billNo[2:], updatedID)

		back, err = BillNoFromUpdatedID(updatedID)
		require.NoError(t, err)
		assert.Equal(t, billNo, back)
	}

	_, err := ReturnIDFor("RB007")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	_, err = BillNoFromReturnID("NB007")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
