// Package contract holds the poll state transitions. Every entry point receives its
// storage and address API explicitly; nothing here keeps state between calls.
package contract

import (
	"context"
	"fmt"

	"polling_contract/internal/address"
	"polling_contract/internal/models"
	"polling_contract/internal/repository"
)

const (
	ContractName    = "polling-contract"
	ContractVersion = "0.1.0"
)

const (
	ChoiceYes = "yes"
	ChoiceNo  = "no"
)

type Deps struct {
	Repo repository.StateRepository
	API  address.Validator
}

type MessageInfo struct {
	Sender string
}

func Instantiate(ctx context.Context, deps Deps, info MessageInfo, msg models.InstantiateMsg) (models.Response, error) {
	err := deps.Repo.SaveContractInfo(ctx, models.ContractInfo{
		Contract: ContractName,
		Version:  ContractVersion,
	})
	if err != nil {
		return models.Response{}, fmt.Errorf("set contract version: %w", err)
	}

	admin, err := deps.API.Validate(msg.AdminAddress)
	if err != nil {
		return models.Response{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	if err := deps.Repo.SaveConfig(ctx, models.Config{AdminAddress: admin}); err != nil {
		return models.Response{}, fmt.Errorf("save config: %w", err)
	}

	return models.NewResponse().AddAttribute("action", "instantiate"), nil
}

func Execute(ctx context.Context, deps Deps, info MessageInfo, msg models.ExecuteMsg) (models.Response, error) {
	switch m := msg.(type) {
	case models.CreatePoll:
		return executeCreatePoll(ctx, deps, info, m.Question)
	case models.Vote:
		return executeVote(ctx, deps, info, m.Question, m.Choice)
	default:
		return models.Response{}, fmt.Errorf("%w: unsupported execute message %T", models.ErrInvalidMessage, msg)
	}
}

func executeCreatePoll(ctx context.Context, deps Deps, _ MessageInfo, question string) (models.Response, error) {
	exists, err := deps.Repo.HasPoll(ctx, question)
	if err != nil {
		return models.Response{}, err
	}
	if exists {
		return models.Response{}, ErrAlreadyExists
	}

	poll := models.Poll{
		Question: question,
		YesVotes: 0,
		NoVotes:  0,
	}
	if err := deps.Repo.SavePoll(ctx, question, poll); err != nil {
		return models.Response{}, err
	}

	return models.NewResponse().AddAttribute("action", "create_poll"), nil
}

// executeVote checks existence before the choice, so an unknown poll wins over a bad choice.
// Voters are not tracked: the same sender may vote any number of times.
func executeVote(ctx context.Context, deps Deps, _ MessageInfo, question, choice string) (models.Response, error) {
	exists, err := deps.Repo.HasPoll(ctx, question)
	if err != nil {
		return models.Response{}, err
	}
	if !exists {
		return models.Response{}, ErrPollNotFound
	}
	if choice != ChoiceYes && choice != ChoiceNo {
		return models.Response{}, ErrInvalidChoice
	}

	poll, err := deps.Repo.LoadPoll(ctx, question)
	if err != nil {
		return models.Response{}, err
	}

	if choice == ChoiceYes {
		poll.YesVotes++
	} else {
		poll.NoVotes++
	}

	if err := deps.Repo.SavePoll(ctx, question, poll); err != nil {
		return models.Response{}, err
	}

	return models.NewResponse().AddAttribute("action", "vote"), nil
}

// Query returns the JSON encoding of the query result.
func Query(ctx context.Context, deps Deps, msg models.QueryMsg) ([]byte, error) {
	switch m := msg.(type) {
	case models.GetPoll:
		res, err := GetPoll(ctx, deps, m.Question)
		if err != nil {
			return nil, err
		}
		return models.Marshal(res)
	default:
		return nil, fmt.Errorf("%w: unsupported query message %T", models.ErrInvalidMessage, msg)
	}
}

// GetPoll never reports absence as an error.
func GetPoll(ctx context.Context, deps Deps, question string) (models.PollResponse, error) {
	poll, err := deps.Repo.TryLoadPoll(ctx, question)
	if err != nil {
		return models.PollResponse{}, err
	}
	return models.PollResponse{Poll: poll}, nil
}
