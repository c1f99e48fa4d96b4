package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tarantool/go-tarantool"
)

type MockTarantoolConn struct {
	mock.Mock
}

func (m *MockTarantoolConn) Select(space, index interface{}, offset, limit, iterator uint32, key interface{}) (*tarantool.Response, error) {
	args := m.Called(space, index, offset, limit, iterator, key)
	return args.Get(0).(*tarantool.Response), args.Error(1)
}

func (m *MockTarantoolConn) Replace(space interface{}, tuple interface{}) (*tarantool.Response, error) {
	args := m.Called(space, tuple)
	return args.Get(0).(*tarantool.Response), args.Error(1)
}

func (m *MockTarantoolConn) Delete(space, index interface{}, key interface{}) (*tarantool.Response, error) {
	args := m.Called(space, index, key)
	return args.Get(0).(*tarantool.Response), args.Error(1)
}

func (m *MockTarantoolConn) Eval(expr string, args interface{}) (*tarantool.Response, error) {
	called := m.Called(expr, args)
	return called.Get(0).(*tarantool.Response), called.Error(1)
}

func TestTarantoolStore_Get(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(*MockTarantoolConn)
		expected    []byte
		expectedErr error
	}{
		{
			name: "binary value",
			mockSetup: func(m *MockTarantoolConn) {
				m.On("Select", "kv", "primary", uint32(0), uint32(1), uint32(tarantool.IterEq), []interface{}{"k"}).
					Return(&tarantool.Response{Data: []interface{}{[]interface{}{"k", []byte("v")}}}, nil)
			},
			expected: []byte("v"),
		},
		{
			name: "string value",
			mockSetup: func(m *MockTarantoolConn) {
				m.On("Select", "kv", "primary", uint32(0), uint32(1), uint32(tarantool.IterEq), []interface{}{"k"}).
					Return(&tarantool.Response{Data: []interface{}{[]interface{}{"k", "v"}}}, nil)
			},
			expected: []byte("v"),
		},
		{
			name: "missing key",
			mockSetup: func(m *MockTarantoolConn) {
				m.On("Select", "kv", "primary", uint32(0), uint32(1), uint32(tarantool.IterEq), []interface{}{"k"}).
					Return(&tarantool.Response{}, nil)
			},
			expectedErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := new(MockTarantoolConn)
			tt.mockSetup(conn)

			store := NewTarantoolStore(conn, "kv")
			value, err := store.Get(context.Background(), []byte("k"))

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, value)
			}
			conn.AssertExpectations(t)
		})
	}
}

func TestTarantoolStore_SelectError(t *testing.T) {
	conn := new(MockTarantoolConn)
	conn.On("Select", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&tarantool.Response{}, errors.New("connection lost"))

	store := NewTarantoolStore(conn, "kv")
	has, err := store.Has(context.Background(), []byte("k"))

	assert.ErrorContains(t, err, "connection lost")
	assert.False(t, has)
}

func TestTarantoolStore_WriteUsesAtomicEval(t *testing.T) {
	conn := new(MockTarantoolConn)
	conn.On("Eval", atomicWriteLua, []interface{}{"kv", []interface{}{
		[]interface{}{"a", []byte("1"), false},
		[]interface{}{"b", []byte(nil), true},
	}}).Return(&tarantool.Response{}, nil)

	store := NewTarantoolStore(conn, "kv")
	err := store.Write(context.Background(), []Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Delete: true},
	})

	require.NoError(t, err)
	conn.AssertExpectations(t)
}

func TestTarantoolStore_EmptyWriteSkipsEval(t *testing.T) {
	conn := new(MockTarantoolConn)
	store := NewTarantoolStore(conn, "kv")

	require.NoError(t, store.Write(context.Background(), nil))
	conn.AssertNotCalled(t, "Eval", mock.Anything, mock.Anything)
}
