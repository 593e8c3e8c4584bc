package kv

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	s := New[string, int]()

	s.Set("foo", 42)
	val, ok := s.Get("foo")
	assert.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = s.Get("bar")
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s := New[string, string]()
	s.Set("key", "value")

	s.Delete("key")

	_, ok := s.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Update(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		key     string
		fn      func(int) (int, error)
		want    int
		wantOK  bool
		wantErr error
		stored  int
	}{
		{
			name:   "stores the new value",
			key:    "a",
			fn:     func(v int) (int, error) { return v + 1, nil },
			want:   2,
			wantOK: true,
			stored: 2,
		},
		{
			name:    "error keeps the old value",
			key:     "a",
			fn:      func(v int) (int, error) { return 99, boom },
			want:    1,
			wantOK:  true,
			wantErr: boom,
			stored:  1,
		},
		{
			name:   "missing key",
			key:    "zzz",
			fn:     func(v int) (int, error) { t.Fatal("fn called for missing key"); return 0, nil },
			stored: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New[string, int]()
			s.Set("a", 1)

			got, ok, err := s.Update(tt.key, tt.fn)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			stored, _ := s.Get("a")
			assert.Equal(t, tt.stored, stored)
		})
	}
}

func TestStore_Values(t *testing.T) {
	s := New[string, int]()
	s.Set("a", 1)
	s.Set("b", 2)

	assert.ElementsMatch(t, []int{1, 2}, s.Values())
}

func TestStore_ConcurrentUpdate(t *testing.T) {
	s := New[string, int]()
	s.Set("n", 0)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Update("n", func(v int) (int, error) { return v + 1, nil })
		}()
	}
	wg.Wait()

	n, _ := s.Get("n")
	assert.Equal(t, 100, n)
}
