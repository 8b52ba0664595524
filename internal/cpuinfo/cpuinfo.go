// Package cpuinfo reports the host CPU features recorded with benchmark runs.
package cpuinfo

import (
	"fmt"
	"runtime"
)

// ISA represents a SIMD instruction set architecture.
type ISA uint8

const (
	// Generic represents a CPU without a recognized vector extension.
	Generic ISA = iota
	// NEON represents ARM64 NEON (128-bit SIMD, ASIMD).
	NEON
	// SVE2 represents ARM64 SVE2 (scalable vectors, 128-2048 bit).
	SVE2
	// AVX2 represents x86-64 AVX2 (256-bit SIMD with FMA).
	AVX2
	// AVX512 represents x86-64 AVX-512 (512-bit SIMD).
	AVX512
)

// String returns the string representation of an ISA.
func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case NEON:
		return "neon"
	case SVE2:
		return "sve2"
	case AVX2:
		return "avx2"
	case AVX512:
		return "avx512"
	default:
		return "unknown"
	}
}

// CPU feature flags (set by platform-specific init).
var (
	hasASIMD    bool // ARM64 NEON
	hasSVE2     bool // ARM64 SVE2
	hasAVX2     bool // x86-64 AVX2 + FMA
	hasAVX512F  bool // x86-64 AVX-512 Foundation
	hasAVX512BW bool // x86-64 AVX-512 Byte/Word
)

// BestISA returns the widest vector extension available on this CPU.
func BestISA() ISA {
	switch {
	case hasAVX512F && hasAVX512BW:
		return AVX512
	case hasAVX2:
		return AVX2
	case hasSVE2:
		return SVE2
	case hasASIMD:
		return NEON
	default:
		return Generic
	}
}

// Info describes the host.
type Info struct {
	GOOS    string
	GOARCH  string
	ISA     ISA
	Threads int
}

// Host returns the description of the current host.
func Host() Info {
	return Info{
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		ISA:     BestISA(),
		Threads: runtime.GOMAXPROCS(0),
	}
}

// String formats the host as "linux/amd64 avx2 x8".
func (i Info) String() string {
	return fmt.Sprintf("%s/%s %s x%d", i.GOOS, i.GOARCH, i.ISA, i.Threads)
}
