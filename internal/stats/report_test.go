package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport(t *testing.T) {
	payload := []byte{
		0x39, 0x30, 0x00, 0x00, // match id 12345
		0xFE, 0xFF, 0xFF, 0xFF, // score -2
		0x58, 0x02, 0x00, 0x00, // duration 600s
		0x01,             // win
		0xDE, 0xAD, 0xBE, // trailing game bytes
	}

	report, err := ParseReport(payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(12345), report.MatchID)
	assert.Equal(t, int32(-2), report.Score)
	assert.Equal(t, uint32(600), report.Duration)
	assert.Equal(t, OutcomeWin, report.Outcome)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE}, report.Extra)
}

func TestParseReportTooShort(t *testing.T) {
	_, err := ParseReport([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestEncodeReportRoundTrip(t *testing.T) {
	report := &Report{
		MatchID:  7,
		Score:    -150,
		Duration: 1245,
		Outcome:  OutcomeDisconnect,
		Extra:    []byte("extra"),
	}

	parsed, err := ParseReport(EncodeReport(report))
	require.NoError(t, err)
	assert.Equal(t, report.MatchID, parsed.MatchID)
	assert.Equal(t, report.Score, parsed.Score)
	assert.Equal(t, report.Duration, parsed.Duration)
	assert.Equal(t, report.Outcome, parsed.Outcome)
	assert.Equal(t, report.Extra, parsed.Extra)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "win", OutcomeWin.String())
	assert.Equal(t, "loss", OutcomeLoss.String())
	assert.Equal(t, "unknown", Outcome(200).String())
}
