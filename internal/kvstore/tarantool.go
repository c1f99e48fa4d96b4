package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarantool/go-tarantool"
)

// atomicWriteLua applies a batch of {key, value, delete} triples in one box transaction.
const atomicWriteLua = `
local space_name, ops = ...
local space = box.space[space_name]
box.atomic(function()
    for _, op in ipairs(ops) do
        if op[3] then
            space:delete{op[1]}
        else
            space:replace{op[1], op[2]}
        end
    end
end)
`

type TarantoolConn interface {
	Select(space, index interface{}, offset, limit, iterator uint32, key interface{}) (*tarantool.Response, error)
	Replace(space interface{}, tuple interface{}) (*tarantool.Response, error)
	Delete(space, index interface{}, key interface{}) (*tarantool.Response, error)
	Eval(expr string, args interface{}) (*tarantool.Response, error)
}

// TarantoolStore expects a space whose tuples are {key string, value varbinary}
// with a primary index on the first field.
type TarantoolStore struct {
	conn      TarantoolConn
	spaceName string
}

func NewTarantoolStore(conn TarantoolConn, spaceName string) *TarantoolStore {
	return &TarantoolStore{
		conn:      conn,
		spaceName: spaceName,
	}
}

func (s *TarantoolStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.conn.Select(s.spaceName, "primary", 0, 1, tarantool.IterEq, []interface{}{string(key)})
	if err != nil {
		return nil, fmt.Errorf("tarantool select: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, ErrNotFound
	}

	return parseValueTuple(res.Data[0])
}

func (s *TarantoolStore) Has(ctx context.Context, key []byte) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TarantoolStore) Set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.conn.Replace(s.spaceName, []interface{}{string(key), value}); err != nil {
		return fmt.Errorf("tarantool replace: %w", err)
	}
	return nil
}

func (s *TarantoolStore) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.conn.Delete(s.spaceName, "primary", []interface{}{string(key)}); err != nil {
		return fmt.Errorf("tarantool delete: %w", err)
	}
	return nil
}

func (s *TarantoolStore) Write(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	batch := make([]interface{}, 0, len(ops))
	for _, op := range ops {
		batch = append(batch, []interface{}{string(op.Key), op.Value, op.Delete})
	}

	if _, err := s.conn.Eval(atomicWriteLua, []interface{}{s.spaceName, batch}); err != nil {
		return fmt.Errorf("tarantool atomic write: %w", err)
	}
	return nil
}

func parseValueTuple(data interface{}) ([]byte, error) {
	tuple, ok := data.([]interface{})
	if !ok || len(tuple) < 2 {
		return nil, errors.New("malformed tarantool tuple")
	}

	switch v := tuple[1].(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unexpected tarantool value type %T", tuple[1])
	}
}
