package stats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Report is one decoded telemetry record.
// Wire layout (little-endian): [match_id:4][score:4][duration_sec:4][outcome:1]
// followed by optional game-specific trailing bytes that are stored opaque.
type Report struct {
	MatchID  uint32    `json:"match_id"`
	Score    int32     `json:"score"`
	Duration uint32    `json:"duration_sec"`
	Outcome  Outcome   `json:"outcome"`
	Extra    []byte    `json:"-"`
	SavedAt  time.Time `json:"saved_at"`
}

// Outcome is the reported match result.
type Outcome uint8

const (
	OutcomeUnknown Outcome = iota
	OutcomeWin
	OutcomeLoss
	OutcomeDraw
	OutcomeDisconnect
)

var outcomeStrings = map[Outcome]string{
	OutcomeUnknown:    "unknown",
	OutcomeWin:        "win",
	OutcomeLoss:       "loss",
	OutcomeDraw:       "draw",
	OutcomeDisconnect: "disconnect",
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	if s, ok := outcomeStrings[o]; ok {
		return s
	}
	return "unknown"
}

// reportFixedLen is the size of the fixed leading fields.
const reportFixedLen = 13

// ParseReport decodes a telemetry record from a verified payload.
func ParseReport(payload []byte) (*Report, error) {
	if len(payload) < reportFixedLen {
		return nil, fmt.Errorf("report too short: %d bytes, need %d", len(payload), reportFixedLen)
	}

	r := bytes.NewReader(payload)
	report := &Report{}

	if err := binary.Read(r, binary.LittleEndian, &report.MatchID); err != nil {
		return nil, fmt.Errorf("failed to parse match id: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &report.Score); err != nil {
		return nil, fmt.Errorf("failed to parse score: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &report.Duration); err != nil {
		return nil, fmt.Errorf("failed to parse duration: %w", err)
	}
	var outcome uint8
	if err := binary.Read(r, binary.LittleEndian, &outcome); err != nil {
		return nil, fmt.Errorf("failed to parse outcome: %w", err)
	}
	report.Outcome = Outcome(outcome)

	if rest := payload[reportFixedLen:]; len(rest) > 0 {
		report.Extra = make([]byte, len(rest))
		copy(report.Extra, rest)
	}

	return report, nil
}

// EncodeReport renders a report back into its wire layout. Tests and the
// CLI encode command use it to build request payloads.
func EncodeReport(report *Report) []byte {
	buf := make([]byte, reportFixedLen, reportFixedLen+len(report.Extra))
	binary.LittleEndian.PutUint32(buf[0:4], report.MatchID)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(report.Score))
	binary.LittleEndian.PutUint32(buf[8:12], report.Duration)
	buf[12] = byte(report.Outcome)
	return append(buf, report.Extra...)
}
