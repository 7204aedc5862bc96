package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/internal/passwords"
)

var fastHashing = passwords.Argon2idParams{
	Time:        1,
	MemoryKiB:   1024,
	Parallelism: 1,
	KeyLen:      32,
	SaltLen:     16,
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(
		Config{
			Driver:    DriverSQLite,
			DataDir:   t.TempDir(),
			UsersHash: fastHashing,
		},
	)
	require.NoError(t, err)
	return s
}
