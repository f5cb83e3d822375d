// Package kernel reports the running kernel release.
package kernel

import (
	"github.com/brickingsoft/errors"
	"strconv"
	"strings"
)

var ErrInvalidRelease = errors.Define("invalid kernel release")

type Version struct {
	Major  int
	Minor  int
	Patch  int
	Flavor string
	valid  bool
}

func (v Version) Valid() bool {
	return v.valid
}

func (v Version) String() string {
	if !v.valid {
		return "unknown"
	}
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch) + v.Flavor
}

// Parse reads a uname release such as "6.8.0-45-generic". Major and minor are
// required, patch defaults to zero and whatever follows the numbers is the flavor.
func Parse(release string) (v Version, err error) {
	rest := release
	nums := [3]int{}
	n := 0
	for ; n < len(nums); n++ {
		end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
		if end < 0 {
			end = len(rest)
		}
		if end == 0 {
			break
		}
		nums[n], _ = strconv.Atoi(rest[:end])
		rest = rest[end:]
		if n == len(nums)-1 || !strings.HasPrefix(rest, ".") || len(rest) < 2 || rest[1] < '0' || rest[1] > '9' {
			n++
			break
		}
		rest = rest[1:]
	}
	if n < 2 {
		err = errors.From(ErrInvalidRelease, errors.WithMeta("release", release))
		return
	}
	v = Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Flavor: rest, valid: true}
	return
}

func Compare(a, b Version) int {
	switch {
	case a.Major != b.Major:
		return sign(a.Major - b.Major)
	case a.Minor != b.Minor:
		return sign(a.Minor - b.Minor)
	default:
		return sign(a.Patch - b.Patch)
	}
}

func sign(n int) int {
	if n > 0 {
		return 1
	} else if n < 0 {
		return -1
	}
	return 0
}

// Enable reports whether the running kernel is at least major.minor.patch.
func Enable(major, minor, patch int) bool {
	v := Get()
	if !v.Valid() {
		return false
	}
	return Compare(v, Version{Major: major, Minor: minor, Patch: patch}) >= 0
}
