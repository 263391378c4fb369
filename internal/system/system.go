package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// PerWorkerMemory is the memory budget assumed for one page in flight:
// the decoded original, its redacted copy and the PNG encode buffer.
const PerWorkerMemory = 256 << 20

// DefaultWorkers sizes the batch worker pool from the host: one worker per
// logical CPU, reduced when available memory cannot hold that many pages.
func DefaultWorkers() int {
	workers, err := cpu.Counts(true)
	if err != nil || workers <= 0 {
		workers = runtime.NumCPU()
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debug().Err(err).Msg("memory_probe_failed")
		return workers
	}
	return capByMemory(workers, vm.Available)
}

func capByMemory(workers int, available uint64) int {
	byMem := int(available / PerWorkerMemory)
	if byMem < workers {
		workers = byMem
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

var inputExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".pdf"}

// FindLatestInput returns the most recently modified image or PDF in dir.
func FindLatestInput(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), inputExtensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no images or PDFs found in %s", dir)
	}

	return latestFile, nil
}

// OutputPath builds a timestamped output name for input inside dir.
func OutputPath(dir, input, suffix string, now time.Time) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, " ", "_")
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s.png", name, suffix, now.Format("2006-01-02_15-04-05")))
}

func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
