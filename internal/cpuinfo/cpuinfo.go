// Package cpuinfo reports the host features relevant to the blocked kernels.
package cpuinfo

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Info is a snapshot of the host CPU.
type Info struct {
	GOOS       string          `json:"goos"`
	GOARCH     string          `json:"goarch"`
	NumCPU     int             `json:"num_cpu"`
	GOMAXPROCS int             `json:"gomaxprocs"`
	CacheLine  int             `json:"cache_line"`
	Features   map[string]bool `json:"features"`
}

func Detect() Info {
	info := Info{
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		CacheLine:  cacheLineSize(),
		Features:   map[string]bool{},
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		info.Features["sse2"] = cpu.X86.HasSSE2
		info.Features["sse41"] = cpu.X86.HasSSE41
		info.Features["avx"] = cpu.X86.HasAVX
		info.Features["avx2"] = cpu.X86.HasAVX2
		info.Features["fma"] = cpu.X86.HasFMA
		info.Features["avx512f"] = cpu.X86.HasAVX512F
		info.Features["avx512bw"] = cpu.X86.HasAVX512BW
	case "arm64":
		info.Features["asimd"] = cpu.ARM64.HasASIMD
		info.Features["fp"] = cpu.ARM64.HasFP
		info.Features["asimdhp"] = cpu.ARM64.HasASIMDHP
		info.Features["sve"] = cpu.ARM64.HasSVE
		info.Features["sve2"] = cpu.ARM64.HasSVE2
	}
	return info
}

// cacheLineSize returns the padding width x/sys/cpu uses for this
// architecture.
func cacheLineSize() int {
	return int(unsafe.Sizeof(cpu.CacheLinePad{}))
}

// Enabled returns the names of the features present, sorted.
func (i Info) Enabled() []string {
	var out []string
	for name, ok := range i.Features {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Write prints a human-readable report.
func (i Info) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "os/arch:    %s/%s\ncpus:       %d\ngomaxprocs: %d\ncache line: %d\n",
		i.GOOS, i.GOARCH, i.NumCPU, i.GOMAXPROCS, i.CacheLine)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(i.Features))
	for name := range i.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "  %-10s %v\n", name, i.Features[name]); err != nil {
			return err
		}
	}
	return nil
}
