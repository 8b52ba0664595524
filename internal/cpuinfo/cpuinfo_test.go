package cpuinfo

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestISAString(t *testing.T) {
	assert.Equal(t, "generic", Generic.String())
	assert.Equal(t, "neon", NEON.String())
	assert.Equal(t, "sve2", SVE2.String())
	assert.Equal(t, "avx2", AVX2.String())
	assert.Equal(t, "avx512", AVX512.String())
	assert.Equal(t, "unknown", ISA(200).String())
}

func TestHost(t *testing.T) {
	info := Host()
	assert.Equal(t, runtime.GOARCH, info.GOARCH)
	assert.Equal(t, runtime.GOMAXPROCS(0), info.Threads)

	switch runtime.GOARCH {
	case "amd64":
		assert.NotContains(t, []ISA{NEON, SVE2}, info.ISA)
	case "arm64":
		assert.NotContains(t, []ISA{AVX2, AVX512}, info.ISA)
	default:
		assert.Equal(t, Generic, info.ISA)
	}

	assert.True(t, strings.HasPrefix(info.String(), runtime.GOOS+"/"+runtime.GOARCH+" "))
}
