package models

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidMessage = errors.New("invalid message")

// strict rejects unknown fields the same way for every inbound message.
var strict = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

type InstantiateMsg struct {
	AdminAddress string `json:"admin_address"`
}

// ExecuteMsg is implemented by CreatePoll and Vote only.
type ExecuteMsg interface {
	executeMsg()
}

type CreatePoll struct {
	Question string `json:"question"`
}

type Vote struct {
	Question string `json:"question"`
	Choice   string `json:"choice"`
}

func (CreatePoll) executeMsg() {}
func (Vote) executeMsg()       {}

// QueryMsg is implemented by GetPoll only.
type QueryMsg interface {
	queryMsg()
}

type GetPoll struct {
	Question string `json:"question"`
}

func (GetPoll) queryMsg() {}

type instantiateWire struct {
	AdminAddress *string `json:"admin_address"`
}

type createPollWire struct {
	Question *string `json:"question"`
}

type voteWire struct {
	Question *string `json:"question"`
	Choice   *string `json:"choice"`
}

type executeWire struct {
	CreatePoll *createPollWire `json:"create_poll,omitempty"`
	Vote       *voteWire       `json:"vote,omitempty"`
}

type getPollWire struct {
	Question *string `json:"question"`
}

type queryWire struct {
	GetPoll *getPollWire `json:"get_poll,omitempty"`
}

func ParseInstantiateMsg(data []byte) (InstantiateMsg, error) {
	var wire instantiateWire
	if err := strict.Unmarshal(data, &wire); err != nil {
		return InstantiateMsg{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if wire.AdminAddress == nil {
		return InstantiateMsg{}, missingField("admin_address")
	}
	return InstantiateMsg{AdminAddress: *wire.AdminAddress}, nil
}

func ParseExecuteMsg(data []byte) (ExecuteMsg, error) {
	if err := singleVariant(data); err != nil {
		return nil, err
	}

	var wire executeWire
	if err := strict.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch {
	case wire.CreatePoll != nil:
		if wire.CreatePoll.Question == nil {
			return nil, missingField("question")
		}
		return CreatePoll{Question: *wire.CreatePoll.Question}, nil

	case wire.Vote != nil:
		if wire.Vote.Question == nil {
			return nil, missingField("question")
		}
		if wire.Vote.Choice == nil {
			return nil, missingField("choice")
		}
		return Vote{Question: *wire.Vote.Question, Choice: *wire.Vote.Choice}, nil

	default:
		return nil, fmt.Errorf("%w: expected one of create_poll, vote", ErrInvalidMessage)
	}
}

func ParseQueryMsg(data []byte) (QueryMsg, error) {
	if err := singleVariant(data); err != nil {
		return nil, err
	}

	var wire queryWire
	if err := strict.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if wire.GetPoll == nil {
		return nil, fmt.Errorf("%w: expected one of get_poll", ErrInvalidMessage)
	}
	if wire.GetPoll.Question == nil {
		return nil, missingField("question")
	}
	return GetPoll{Question: *wire.GetPoll.Question}, nil
}

// MarshalExecuteMsg encodes msg in the same tagged form ParseExecuteMsg accepts.
func MarshalExecuteMsg(msg ExecuteMsg) ([]byte, error) {
	switch m := msg.(type) {
	case CreatePoll:
		return strict.Marshal(map[string]CreatePoll{"create_poll": m})
	case Vote:
		return strict.Marshal(map[string]Vote{"vote": m})
	default:
		return nil, fmt.Errorf("%w: unsupported execute message %T", ErrInvalidMessage, msg)
	}
}

func MarshalQueryMsg(msg QueryMsg) ([]byte, error) {
	switch m := msg.(type) {
	case GetPoll:
		return strict.Marshal(map[string]GetPoll{"get_poll": m})
	default:
		return nil, fmt.Errorf("%w: unsupported query message %T", ErrInvalidMessage, msg)
	}
}

// Marshal encodes query results and responses.
func Marshal(v interface{}) ([]byte, error) {
	return strict.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return strict.Unmarshal(data, v)
}

// singleVariant rejects tagged messages carrying more than one key, null ones included.
func singleVariant(data []byte) error {
	var keys map[string]jsoniter.RawMessage
	if err := strict.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if len(keys) > 1 {
		return fmt.Errorf("%w: expected exactly one variant", ErrInvalidMessage)
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("%w: missing field `%s`", ErrInvalidMessage, name)
}
