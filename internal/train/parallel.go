package train

import "runtime"

// safeParallelism returns the bounded worker cap spec.md §5 describes:
// operating systems whose process-spawn model copies the full address space
// (fork-without-exec semantics, here approximated by the classic BSD/Darwin
// family) get a conservative cap since each worker's memory footprint is
// expensive; copy-on-write spawn models (Linux) get the full core count.
// On those systems forCV selects a third of the cores instead of half,
// matching the spec's tighter cap for the cross-validation outer loop (33% of
// cores) versus single-model training (50%).
func safeParallelism(forCV bool) int {
	cores := runtime.NumCPU()
	if cores < 1 {
		cores = 1
	}

	var capN int
	switch runtime.GOOS {
	case "darwin", "freebsd", "netbsd", "openbsd":
		if forCV {
			capN = cores / 3
		} else {
			capN = cores / 2
		}
	default: // linux and other copy-on-write spawn models
		capN = cores
	}
	if capN < 1 {
		capN = 1
	}
	return capN
}
