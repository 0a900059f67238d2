package ldbws

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/travigo/railcommute/pkg/ctdf"
)

// Board is a normalised departure board
type Board struct {
	LocationName       string
	FilterLocationName string
	GeneratedAt        string
	NrccMessages       []string

	Services []ctdf.ServiceRecord
}

type stationBoardResponse struct {
	GetStationBoardResult json.RawMessage `json:"GetStationBoardResult"`
}

type stationBoard struct {
	LocationName       string       `json:"locationName"`
	FilterLocationName string       `json:"filterLocationName"`
	GeneratedAt        string       `json:"generatedAt"`
	NrccMessages       nrccMessages `json:"nrccMessages"`

	TrainServices trainServices `json:"trainServices"`
}

type trainService struct {
	ServiceID        string `json:"serviceID"`
	ServiceIDURLSafe string `json:"serviceIdUrlSafe"`

	Operator     string `json:"operator"`
	OperatorName string `json:"operatorName"`

	Scheduled string `json:"std"`
	Estimated string `json:"etd"`
	Platform  string `json:"platform"`

	CancelReason string `json:"cancelReason"`
	DelayReason  string `json:"delayReason"`

	Destination             oneOrMany[serviceLocation] `json:"destination"`
	SubsequentCallingPoints oneOrMany[callingPointList] `json:"subsequentCallingPoints"`
}

type serviceLocation struct {
	LocationName string `json:"locationName"`
	Crs          string `json:"crs"`
}

type callingPointList struct {
	CallingPoint oneOrMany[callingPoint] `json:"callingPoint"`
}

type callingPoint struct {
	LocationName string `json:"locationName"`
	Crs          string `json:"crs"`
	Scheduled    string `json:"st"`
	Estimated    string `json:"et"`
}

// oneOrMany decodes a field the gateway sends either as a single object or as a list of them
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*o = nil
		return nil
	case data[0] == '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*o = items
		return nil
	default:
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		*o = oneOrMany[T]{item}
		return nil
	}
}

// trainServices holds the raw service entries so that each one can be decoded on its own.
// The gateway sends either a bare list or an object wrapping a list (or single object) under "service".
type trainServices []json.RawMessage

func (t *trainServices) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Service json.RawMessage `json:"service"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return err
		}
		data = bytes.TrimSpace(wrapper.Service)
	}

	var services oneOrMany[json.RawMessage]
	if err := services.UnmarshalJSON(data); err != nil {
		return err
	}

	*t = trainServices(services)
	return nil
}

// nrccMessages accepts plain strings or {"Value": "..."} objects, optionally wrapped under "message"
type nrccMessages []string

func (n *nrccMessages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return err
		}
		if len(wrapper.Message) > 0 {
			data = bytes.TrimSpace(wrapper.Message)
		}
	}

	var rawMessages oneOrMany[json.RawMessage]
	if err := rawMessages.UnmarshalJSON(data); err != nil {
		return err
	}

	messages := nrccMessages{}
	for _, rawMessage := range rawMessages {
		var text string
		if err := json.Unmarshal(rawMessage, &text); err != nil {
			var object struct {
				UpperValue string `json:"Value"`
				LowerValue string `json:"value"`
			}
			if err := json.Unmarshal(rawMessage, &object); err != nil {
				continue
			}

			text = object.UpperValue
			if text == "" {
				text = object.LowerValue
			}
		}

		if text != "" {
			messages = append(messages, text)
		}
	}

	*n = messages
	return nil
}

var errNotAnObject = errors.New("departure board is not a JSON object")

func decodeStationBoard(raw []byte) (*stationBoard, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errNotAnObject
	}

	var response stationBoardResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, err
	}

	boardJSON := raw
	if len(response.GetStationBoardResult) > 0 && !bytes.Equal(response.GetStationBoardResult, []byte("null")) {
		boardJSON = response.GetStationBoardResult
	}

	var board stationBoard
	if err := json.Unmarshal(boardJSON, &board); err != nil {
		return nil, err
	}

	return &board, nil
}
