package handler

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"polling_contract/internal/host"
	"polling_contract/internal/models"
)

const commandPrefix = "!poll"

type PollContract interface {
	Execute(ctx context.Context, sender string, msg models.ExecuteMsg) (models.Response, error)
	GetPoll(ctx context.Context, question string) (models.PollResponse, error)
}

type CommandHandler interface {
	ParseCommand(input string) (command string, args []string, isValid bool)
	HandleCommand(ctx context.Context, command string, args []string, userID string) (string, error)
	GetHelpText() string
}

type PollCommandHandler struct {
	contract PollContract
}

func NewPollCommandHandler(contract PollContract) *PollCommandHandler {
	return &PollCommandHandler{
		contract: contract,
	}
}

func (h *PollCommandHandler) ParseCommand(input string) (command string, args []string, isValid bool) {
	parts := parseCommandArgs(input)
	if len(parts) < 1 || parts[0] != commandPrefix {
		return "", nil, false
	}

	if len(parts) < 2 {
		return "help", nil, true
	}

	return strings.ToLower(parts[1]), parts[2:], true
}

// HandleCommand answers rejected calls with their reason and returns an error only
// when the contract host itself failed.
func (h *PollCommandHandler) HandleCommand(ctx context.Context, command string, args []string, userID string) (string, error) {
	switch command {
	case "help":
		return h.GetHelpText(), nil

	case "create":
		if len(args) != 1 {
			return `Usage: !poll create "Question"`, nil
		}
		return h.execute(ctx, userID, models.CreatePoll{Question: args[0]},
			fmt.Sprintf("Poll created: %s", args[0]))

	case "vote":
		if len(args) != 2 {
			return `Usage: !poll vote "Question" yes|no`, nil
		}
		return h.execute(ctx, userID, models.Vote{Question: args[0], Choice: args[1]},
			fmt.Sprintf("Vote recorded for %s: %s", args[0], args[1]))

	case "results":
		if len(args) != 1 {
			return `Usage: !poll results "Question"`, nil
		}
		return h.results(ctx, args[0])

	default:
		return "Unknown command. Type !poll help for usage", nil
	}
}

func (h *PollCommandHandler) GetHelpText() string {
	return `**Poll commands:**
    !poll create "Question" - Create a yes/no poll
    !poll vote "Question" yes|no - Vote
    !poll results "Question" - Show the tally
    !poll help - Show this help`
}

func (h *PollCommandHandler) execute(ctx context.Context, userID string, msg models.ExecuteMsg, success string) (string, error) {
	if _, err := h.contract.Execute(ctx, userID, msg); err != nil {
		if host.IsRejection(err) {
			return err.Error(), nil
		}
		return "", err
	}
	return success, nil
}

func (h *PollCommandHandler) results(ctx context.Context, question string) (string, error) {
	res, err := h.contract.GetPoll(ctx, question)
	if err != nil {
		if host.IsRejection(err) {
			return err.Error(), nil
		}
		return "", err
	}
	if res.Poll == nil {
		return fmt.Sprintf("No poll for %s", question), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Results: %s**\n", res.Poll.Question))
	sb.WriteString(fmt.Sprintf("- yes: %d\n", res.Poll.YesVotes))
	sb.WriteString(fmt.Sprintf("- no: %d\n", res.Poll.NoVotes))
	return sb.String(), nil
}

// parseCommandArgs splits on whitespace, keeping quoted runs ("..." or '...') together.
// A backslash escapes the next rune inside quotes.
func parseCommandArgs(input string) []string {
	var args []string
	var buf strings.Builder
	inQuotes := false
	var quoteChar rune
	escape := false

	for _, r := range input {
		if escape {
			buf.WriteRune(r)
			escape = false
			continue
		}

		switch {
		case r == '\\':
			if inQuotes {
				escape = true
			} else {
				buf.WriteRune(r)
			}

		case r == '"' || r == '\'':
			if inQuotes {
				if r == quoteChar {
					inQuotes = false
					args = append(args, buf.String())
					buf.Reset()
				} else {
					buf.WriteRune(r)
				}
			} else {
				inQuotes = true
				quoteChar = r
			}

		case unicode.IsSpace(r):
			if inQuotes {
				buf.WriteRune(r)
			} else if buf.Len() > 0 {
				args = append(args, buf.String())
				buf.Reset()
			}

		default:
			buf.WriteRune(r)
		}
	}

	if buf.Len() > 0 {
		args = append(args, buf.String())
	}

	return args
}
