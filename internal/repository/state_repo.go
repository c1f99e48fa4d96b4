package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"polling_contract/internal/kvstore"
	"polling_contract/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrCorruptRecord = errors.New("corrupt record")
)

const (
	configKey       = "config"
	contractInfoKey = "contract_info"
	pollsNamespace  = "polls"
)

type StateRepository interface {
	SaveConfig(ctx context.Context, cfg models.Config) error
	LoadConfig(ctx context.Context) (models.Config, error)
	SaveContractInfo(ctx context.Context, info models.ContractInfo) error
	LoadContractInfo(ctx context.Context) (models.ContractInfo, error)
	HasPoll(ctx context.Context, question string) (bool, error)
	SavePoll(ctx context.Context, question string, poll models.Poll) error
	LoadPoll(ctx context.Context, question string) (models.Poll, error)
	TryLoadPoll(ctx context.Context, question string) (*models.Poll, error)
}

// KVStateRepository maps contract records onto a byte store. It holds no rules of its own.
type KVStateRepository struct {
	store kvstore.Store
}

func NewKVStateRepository(store kvstore.Store) *KVStateRepository {
	return &KVStateRepository{store: store}
}

func (r *KVStateRepository) SaveConfig(ctx context.Context, cfg models.Config) error {
	return r.save(ctx, []byte(configKey), cfg)
}

func (r *KVStateRepository) LoadConfig(ctx context.Context) (models.Config, error) {
	var cfg models.Config
	if err := r.load(ctx, []byte(configKey), &cfg); err != nil {
		return models.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (r *KVStateRepository) SaveContractInfo(ctx context.Context, info models.ContractInfo) error {
	return r.save(ctx, []byte(contractInfoKey), info)
}

func (r *KVStateRepository) LoadContractInfo(ctx context.Context) (models.ContractInfo, error) {
	var info models.ContractInfo
	if err := r.load(ctx, []byte(contractInfoKey), &info); err != nil {
		return models.ContractInfo{}, fmt.Errorf("load contract info: %w", err)
	}
	return info, nil
}

func (r *KVStateRepository) HasPoll(ctx context.Context, question string) (bool, error) {
	ok, err := r.store.Has(ctx, PollKey(question))
	if err != nil {
		return false, fmt.Errorf("check poll: %w", err)
	}
	return ok, nil
}

func (r *KVStateRepository) SavePoll(ctx context.Context, question string, poll models.Poll) error {
	return r.save(ctx, PollKey(question), poll)
}

func (r *KVStateRepository) LoadPoll(ctx context.Context, question string) (models.Poll, error) {
	var poll models.Poll
	if err := r.load(ctx, PollKey(question), &poll); err != nil {
		return models.Poll{}, fmt.Errorf("load poll: %w", err)
	}
	return poll, nil
}

func (r *KVStateRepository) TryLoadPoll(ctx context.Context, question string) (*models.Poll, error) {
	poll, err := r.LoadPoll(ctx, question)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *KVStateRepository) save(ctx context.Context, key []byte, v interface{}) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

func (r *KVStateRepository) load(ctx context.Context, key []byte, v interface{}) error {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}

// PollKey is the storage key of a poll: a length-prefixed namespace followed by the question bytes.
func PollKey(question string) []byte {
	return namespacedKey(pollsNamespace, []byte(question))
}

func namespacedKey(namespace string, key []byte) []byte {
	out := make([]byte, 2, 2+len(namespace)+len(key))
	binary.BigEndian.PutUint16(out, uint16(len(namespace)))
	out = append(out, namespace...)
	return append(out, key...)
}
