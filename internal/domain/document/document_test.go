package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	doc, err := New("ACME Charters Ltd.", testDate, 45000, "airport transfer")
	require.NoError(t, err)

	assert.NotEqual(t, "", doc.ID.String())
	assert.Equal(t, StatusUnlinked, doc.Status)
	assert.Nil(t, doc.BankTxnID)
	assert.Len(t, doc.Fingerprint, 64)
	assert.False(t, doc.Linked())
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name         string
		counterparty string
		date         time.Time
		amountCents  int64
		wantErr      error
	}{
		{name: "empty counterparty", counterparty: "   ", date: testDate, amountCents: 100, wantErr: ErrEmptyCounterparty},
		{name: "zero amount", counterparty: "ACME", date: testDate, amountCents: 0, wantErr: ErrZeroAmount},
		{name: "zero date", counterparty: "ACME", amountCents: 100, wantErr: ErrZeroDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.counterparty, tt.date, tt.amountCents, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeCounterparty(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ACME  Charters Ltd.", "acme charters ltd"},
		{"acme charters ltd", "acme charters ltd"},
		{"  A.C.M.E. Charters  ", "acme charters"},
		{"O'Brien & Sons", "obrien sons"},
		{"METRO-SHUTTLE (HOLDINGS)", "metroshuttle holdings"},
		{"", ""},
		{"...", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCounterparty(tt.in), "input %q", tt.in)
	}
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint("ACME Charters Ltd.", testDate, 45000)

	// Normalization-equivalent counterparties produce the same fingerprint
	assert.Equal(t, base, Fingerprint("acme  charters ltd", testDate, 45000))

	// Time of day does not change the fingerprint, the calendar date does
	assert.Equal(t, base, Fingerprint("ACME Charters Ltd.", testDate.Add(13*time.Hour), 45000))
	assert.NotEqual(t, base, Fingerprint("ACME Charters Ltd.", testDate.AddDate(0, 0, 1), 45000))

	assert.NotEqual(t, base, Fingerprint("ACME Charters Ltd.", testDate, 45001))
	assert.NotEqual(t, base, Fingerprint("Other Vendor", testDate, 45000))
}
