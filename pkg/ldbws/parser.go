package ldbws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/ctdf"
	"github.com/travigo/railcommute/pkg/util"
	"golang.org/x/exp/slices"
)

var cancelledEstimates = []string{"cancelled", "canceled"}

const onTimeEstimate = "on time"

// ParseBoard normalises a raw GetDepBoardWithDetails / GetDepartureBoard response.
// Services that fail to decode are logged and dropped, the rest of the board is still returned.
func ParseBoard(raw []byte) (*Board, error) {
	stationBoard, err := decodeStationBoard(raw)
	if err != nil {
		return nil, fmt.Errorf("decode departure board: %w", err)
	}

	board := &Board{
		LocationName:       stationBoard.LocationName,
		FilterLocationName: stationBoard.FilterLocationName,
		GeneratedAt:        stationBoard.GeneratedAt,
		NrccMessages:       stationBoard.NrccMessages,
		Services:           []ctdf.ServiceRecord{},
	}
	if board.NrccMessages == nil {
		board.NrccMessages = []string{}
	}

	for index, rawService := range stationBoard.TrainServices {
		var service trainService
		if err := json.Unmarshal(rawService, &service); err != nil {
			log.Error().Err(err).Int("index", index).Str("location", board.LocationName).Msg("Failed to parse train service")
			continue
		}

		board.Services = append(board.Services, service.toServiceRecord())
	}

	return board, nil
}

func (s *trainService) toServiceRecord() ctdf.ServiceRecord {
	status, expected, delay := DeriveStatus(s.Scheduled, s.Estimated)

	record := ctdf.ServiceRecord{
		ServiceID:          firstNonEmpty(s.ServiceID, s.ServiceIDURLSafe),
		Operator:           firstNonEmpty(s.Operator, s.OperatorName),
		ScheduledDeparture: s.Scheduled,
		ExpectedDeparture:  expected,
		Platform:           s.Platform,
		Status:             status,
		IsCancelled:        status == ctdf.ServiceStatusCancelled,
		DelayMinutes:       delay,
		CallingPoints:      []string{},
	}

	if record.IsCancelled {
		record.CancellationReason = firstNonEmpty(s.CancelReason, s.DelayReason)
	} else {
		record.DelayReason = s.DelayReason
	}

	if len(s.Destination) > 0 {
		record.Destination = s.Destination[0].LocationName
	}

	if len(s.SubsequentCallingPoints) > 0 {
		callingPoints := s.SubsequentCallingPoints[0].CallingPoint
		for _, point := range callingPoints {
			if point.LocationName != "" {
				record.CallingPoints = append(record.CallingPoints, point.LocationName)
			}
		}

		if len(callingPoints) > 0 {
			lastPoint := callingPoints[len(callingPoints)-1]
			record.ScheduledArrival = lastPoint.Scheduled
			record.EstimatedArrival = firstNonEmpty(lastPoint.Estimated, lastPoint.Scheduled)
		}
	}

	return record
}

// DeriveStatus works out the status, expected departure and delay of a train from its
// scheduled (std) and estimated (etd) departure values.
// Any estimate other than "On time" or a cancellation is Delayed, even one equal to the scheduled time.
// The delay is only calculated when both values are strict HH:MM times, an expected time earlier
// than the scheduled one is taken to be after midnight.
func DeriveStatus(std string, etd string) (ctdf.ServiceStatus, string, int) {
	if slices.Contains(cancelledEstimates, strings.ToLower(etd)) {
		return ctdf.ServiceStatusCancelled, std, 0
	}

	if etd == "" || strings.EqualFold(etd, onTimeEstimate) {
		return ctdf.ServiceStatusOnTime, std, 0
	}

	scheduledMinutes, scheduledOK := util.ParseClockTime(std)
	expectedMinutes, expectedOK := util.ParseClockTime(etd)
	if !scheduledOK || !expectedOK {
		return ctdf.ServiceStatusDelayed, etd, 0
	}

	if expectedMinutes < scheduledMinutes {
		expectedMinutes += util.MinutesPerDay
	}

	return ctdf.ServiceStatusDelayed, etd, expectedMinutes - scheduledMinutes
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
