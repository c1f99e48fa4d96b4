package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"polling_contract/internal/models"
)

const (
	senderHeader = "X-Sender"
	maxBodyBytes = 64 << 10
)

type ContractHost interface {
	Instantiate(ctx context.Context, sender string, msg models.InstantiateMsg) (models.Response, error)
	Execute(ctx context.Context, sender string, msg models.ExecuteMsg) (models.Response, error)
	Query(ctx context.Context, msg models.QueryMsg) ([]byte, error)
	GetPoll(ctx context.Context, question string) (models.PollResponse, error)
}

type App struct {
	Host   ContractHost
	Logger zerolog.Logger
}

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/instantiate", a.InstantiateHandler)
	r.Post("/execute", a.ExecuteHandler)
	r.Post("/query", a.QueryHandler)
	r.Get("/polls/{question}", a.GetPollHandler)

	return r
}

func (a *App) InstantiateHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}
	msg, err := models.ParseInstantiateMsg(body)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.Host.Instantiate(r.Context(), r.Header.Get(senderHeader), msg)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (a *App) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}
	msg, err := models.ParseExecuteMsg(body)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.Host.Execute(r.Context(), r.Header.Get(senderHeader), msg)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (a *App) QueryHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}
	msg, err := models.ParseQueryMsg(body)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.Host.Query(r.Context(), msg)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	Raw(w, http.StatusOK, res)
}

// GetPollHandler answers 200 with {"poll":null} for unknown questions.
func (a *App) GetPollHandler(w http.ResponseWriter, r *http.Request) {
	question := chi.URLParam(r, "question")
	// chi matches on the raw path when the request carries escaped slashes
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(question)
		if err != nil {
			ErrorJSON(w, http.StatusBadRequest, "malformed question")
			return
		}
		question = unescaped
	}

	res, err := a.Host.GetPoll(r.Context(), question)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (a *App) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		ErrorJSON(w, http.StatusBadRequest, "could not read request body")
		return nil, false
	}
	return body, true
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.Logger.Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		ErrorJSON(w, status, "internal error")
		return
	}
	ErrorJSON(w, status, err.Error())
}
