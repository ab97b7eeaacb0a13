package stacktrace

import "strings"

// InternalPaths filters a raw goroutine stack down to the frames that live
// under this repository's internal tree, trimmed to "internal/...:<line>".
// Runtime and third-party frames are dropped so panic logs stay readable.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")

	var paths []string
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		idx := strings.Index(line, ".go:")
		if idx == -1 || !strings.Contains(line, "/internal/") {
			continue
		}

		end := strings.Index(line[idx:], " ")
		if end == -1 {
			end = len(line)
		} else {
			end += idx
		}

		frame := line[:end]
		if start := strings.Index(frame, "/internal/"); start != -1 {
			paths = append(paths, frame[start+1:])
		}
	}

	return paths
}
