// Package host runs the poll contract the way a chain node would: one state-changing call at
// a time, each call against its own write cache that is committed only when the call succeeds.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"polling_contract/internal/address"
	"polling_contract/internal/contract"
	"polling_contract/internal/events"
	"polling_contract/internal/kvstore"
	"polling_contract/internal/models"
	"polling_contract/internal/repository"
)

var (
	ErrNotInstantiated     = errors.New("contract not instantiated")
	ErrAlreadyInstantiated = errors.New("contract already instantiated")
)

const (
	entrypointInstantiate = "instantiate"
	entrypointExecute     = "execute"
	entrypointQuery       = "query"

	defaultPublishTimeout = 5 * time.Second
)

type Host struct {
	mu        sync.RWMutex
	store     kvstore.Store
	api       address.Validator
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time

	publishTimeout time.Duration
}

func New(store kvstore.Store, api address.Validator, publisher events.Publisher, logger zerolog.Logger) *Host {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Host{
		store:     store,
		api:       api,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,

		publishTimeout: defaultPublishTimeout,
	}
}

func (h *Host) Instantiate(ctx context.Context, sender string, msg models.InstantiateMsg) (models.Response, error) {
	return h.transact(ctx, entrypointInstantiate, sender, func(deps contract.Deps) (models.Response, error) {
		ok, err := instantiated(ctx, deps.Repo)
		if err != nil {
			return models.Response{}, err
		}
		if ok {
			return models.Response{}, ErrAlreadyInstantiated
		}
		return contract.Instantiate(ctx, deps, contract.MessageInfo{Sender: sender}, msg)
	})
}

func (h *Host) Execute(ctx context.Context, sender string, msg models.ExecuteMsg) (models.Response, error) {
	return h.transact(ctx, entrypointExecute, sender, func(deps contract.Deps) (models.Response, error) {
		ok, err := instantiated(ctx, deps.Repo)
		if err != nil {
			return models.Response{}, err
		}
		if !ok {
			return models.Response{}, ErrNotInstantiated
		}
		return contract.Execute(ctx, deps, contract.MessageInfo{Sender: sender}, msg)
	})
}

func (h *Host) Query(ctx context.Context, msg models.QueryMsg) ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deps, err := h.readDeps(ctx)
	if err != nil {
		return nil, err
	}

	res, err := contract.Query(ctx, deps, msg)
	if err != nil {
		h.logger.Err(err).Str("entrypoint", entrypointQuery).Msg("Query failed")
		return nil, err
	}
	return res, nil
}

func (h *Host) GetPoll(ctx context.Context, question string) (models.PollResponse, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deps, err := h.readDeps(ctx)
	if err != nil {
		return models.PollResponse{}, err
	}

	res, err := contract.GetPoll(ctx, deps, question)
	if err != nil {
		h.logger.Err(err).Str("entrypoint", entrypointQuery).Msg("Query failed")
		return models.PollResponse{}, err
	}
	return res, nil
}

func (h *Host) Instantiated(ctx context.Context) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return instantiated(ctx, repository.NewKVStateRepository(h.store))
}

func (h *Host) ContractInfo(ctx context.Context) (models.ContractInfo, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	info, err := repository.NewKVStateRepository(h.store).LoadContractInfo(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return models.ContractInfo{}, ErrNotInstantiated
	}
	return info, err
}

// transact runs fn against a fresh cache and commits it only when fn succeeds. The event for a
// committed call is published after the lock is released.
func (h *Host) transact(ctx context.Context, entrypoint, sender string, fn func(contract.Deps) (models.Response, error)) (models.Response, error) {
	callID := uuid.New().String()
	logger := h.logger.With().
		Str("call_id", callID).
		Str("entrypoint", entrypoint).
		Str("sender", sender).
		Logger()

	res, err := h.commit(ctx, logger, fn)
	if err != nil {
		return models.Response{}, err
	}

	h.publish(ctx, logger, events.Event{
		CallID:     callID,
		Entrypoint: entrypoint,
		Sender:     sender,
		Attributes: res.Attributes,
		Timestamp:  h.now().UTC(),
	})

	return res, nil
}

func (h *Host) commit(ctx context.Context, logger zerolog.Logger, fn func(contract.Deps) (models.Response, error)) (models.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cache := kvstore.NewCache(h.store)
	deps := contract.Deps{
		Repo: repository.NewKVStateRepository(cache),
		API:  h.api,
	}

	res, err := fn(deps)
	if err != nil {
		cache.Discard()
		logCallError(logger, err)
		return models.Response{}, err
	}

	if err := cache.Commit(ctx); err != nil {
		logger.Err(err).Msg("Commit failed")
		return models.Response{}, fmt.Errorf("commit: %w", err)
	}

	logger.Info().Interface("attributes", res.Attributes).Msg("Call committed")
	return res, nil
}

// publish outlives the caller's context: the call is already committed.
func (h *Host) publish(ctx context.Context, logger zerolog.Logger, event events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)
	defer cancel()

	if err := h.publisher.Publish(ctx, event); err != nil {
		logger.Err(err).Msg("Event publication failed")
	}
}

func (h *Host) readDeps(ctx context.Context) (contract.Deps, error) {
	repo := repository.NewKVStateRepository(h.store)
	ok, err := instantiated(ctx, repo)
	if err != nil {
		return contract.Deps{}, err
	}
	if !ok {
		return contract.Deps{}, ErrNotInstantiated
	}
	return contract.Deps{Repo: repo, API: h.api}, nil
}

func instantiated(ctx context.Context, repo repository.StateRepository) (bool, error) {
	_, err := repo.LoadContractInfo(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsRejection reports whether err is a caller mistake rather than a host or storage failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		contract.ErrInvalidAddress,
		contract.ErrAlreadyExists,
		contract.ErrPollNotFound,
		contract.ErrInvalidChoice,
		models.ErrInvalidMessage,
		ErrNotInstantiated,
		ErrAlreadyInstantiated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func logCallError(logger zerolog.Logger, err error) {
	if IsRejection(err) {
		logger.Info().Str("reason", err.Error()).Msg("Call rejected")
		return
	}
	logger.Err(err).Msg("Call failed")
}
