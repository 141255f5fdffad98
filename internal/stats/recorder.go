package stats

import (
	"context"
	"encoding/binary"

	"github.com/rs/zerolog"

	"github.com/statrelay-project/statrelay/internal/dispatch"
	"github.com/statrelay-project/statrelay/internal/protocol"
	"github.com/statrelay-project/statrelay/internal/util"
)

// Recorder is a game handler that parses each verified payload as a
// telemetry report, persists it, and replies with the submitter's total
// report count as a 4-byte little-endian value.
type Recorder struct {
	gameID string
	store  *RecordStore
	logger zerolog.Logger
}

// NewRecorder creates a recorder handler for one game.
func NewRecorder(gameID string, store *RecordStore) *Recorder {
	return &Recorder{
		gameID: gameID,
		store:  store,
		logger: util.ComponentLogger("stats.recorder"),
	}
}

// Handle implements dispatch.Handler.
func (r *Recorder) Handle(ctx context.Context, req *dispatch.Request) error {
	report, err := ParseReport(req.Payload)
	if err != nil {
		// Malformed record, not a server failure: the payload passed the
		// protocol checks but the game-level layout is wrong.
		return protocol.BadRequestf("malformed stats report: %v", err)
	}

	count, err := r.store.Save(r.gameID, req.PID, report)
	if err != nil {
		return err
	}

	r.logger.Debug().
		Str("game_id", r.gameID).
		Int32("pid", req.PID).
		Uint32("match_id", report.MatchID).
		Str("outcome", report.Outcome.String()).
		Uint32("total", count).
		Msg("report recorded")

	var ack [4]byte
	binary.LittleEndian.PutUint32(ack[:], count)
	_, err = req.Out.Write(ack[:])
	return err
}
