package kernel_test

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rsock/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"runtime"
	"testing"
)

func TestGet(t *testing.T) {
	v := kernel.Get()
	if runtime.GOOS != "linux" {
		assert.False(t, v.Valid())
		return
	}
	assert.True(t, v.Valid())
	assert.Greater(t, v.Major, 0)
	assert.True(t, kernel.Enable(2, 6, 0))
	assert.False(t, kernel.Enable(1000, 0, 0))
	t.Log(v)
}

func TestParse(t *testing.T) {
	cases := []struct {
		release string
		major   int
		minor   int
		patch   int
		flavor  string
	}{
		{"6.8.0-45-generic", 6, 8, 0, "-45-generic"},
		{"5.15.153.1-microsoft-standard-WSL2", 5, 15, 153, ".1-microsoft-standard-WSL2"},
		{"4.19", 4, 19, 0, ""},
		{"6.1-rc3", 6, 1, 0, "-rc3"},
		{"3.10.0", 3, 10, 0, ""},
	}
	for _, c := range cases {
		v, err := kernel.Parse(c.release)
		require.NoError(t, err, c.release)
		assert.True(t, v.Valid())
		assert.Equal(t, c.major, v.Major, c.release)
		assert.Equal(t, c.minor, v.Minor, c.release)
		assert.Equal(t, c.patch, v.Patch, c.release)
		assert.Equal(t, c.flavor, v.Flavor, c.release)
	}
	for _, bad := range []string{"", "linux", "6", "6.", "x.1"} {
		_, err := kernel.Parse(bad)
		assert.True(t, errors.Is(err, kernel.ErrInvalidRelease), bad)
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, kernel.Compare(kernel.Version{Major: 5, Minor: 10}, kernel.Version{Major: 5, Minor: 10}))
	assert.Equal(t, 1, kernel.Compare(kernel.Version{Major: 6}, kernel.Version{Major: 5, Minor: 19}))
	assert.Equal(t, -1, kernel.Compare(kernel.Version{Major: 4, Minor: 1, Patch: 2}, kernel.Version{Major: 4, Minor: 1, Patch: 3}))
}
