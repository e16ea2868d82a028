// Package collapsed parses collapsed (folded) stacks as produced by
// stackcollapse-perf and async-profiler:
//
//	comm-pid/tid;frame1;frame2;frame3 count
package collapsed

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/perf-diff/pkg/profiling"
)

// ThreadInfo is the thread identity carried by the first frame of a line.
type ThreadInfo struct {
	ThreadName string
	PID        int
	TID        int
}

// apmThreadRegex matches "[Thread-7 tid=1060369]".
var apmThreadRegex = regexp.MustCompile(`^\[(.+)\s+tid=(\d+)\]$`)

// garbageRegex matches broken perf records such as
// "5_2175795_[002]_83367.826506:-?/10101010".
var garbageRegex = regexp.MustCompile(`^\d+_\d+_`)

// ExtractThreadInfo decodes the leading thread frame of a collapsed line.
// It understands "comm-pid/tid", "comm-pid", "comm-?/tid" and the APM
// form "[name tid=N]". Unknown ids are -1.
func ExtractThreadInfo(frame string) ThreadInfo {
	info := ThreadInfo{ThreadName: frame, PID: -1, TID: -1}

	if m := apmThreadRegex.FindStringSubmatch(frame); m != nil {
		info.ThreadName = m[1]
		info.TID, _ = strconv.Atoi(m[2])
		return info
	}

	dash := strings.LastIndex(frame, "-")
	if dash <= 0 {
		return info
	}
	ids := frame[dash+1:]
	pid, tid, hasTID := strings.Cut(ids, "/")
	if !validID(pid) || (hasTID && !validID(tid)) {
		return info
	}

	info.ThreadName = frame[:dash]
	info.PID = parseID(pid)
	if hasTID {
		info.TID = parseID(tid)
	}
	return info
}

func validID(s string) bool {
	if s == "?" {
		return true
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func parseID(s string) int {
	id, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return id
}

// IsGarbage reports whether the thread frame belongs to a broken record.
func IsGarbage(frame string) bool {
	return garbageRegex.MatchString(frame)
}

// cleanFrame strips the module of a frame unless keepModule is set.
// Kernel frames keep their suffix so that call graphs can split them.
func cleanFrame(frame string, keepModule bool) string {
	if keepModule {
		return frame
	}
	fn, _ := profiling.SplitFuncAndModule(frame)
	return fn
}

// IsCollapsedLine reports whether line looks like "stack count".
func IsCollapsedLine(line string) bool {
	return collapsedLineRegex.MatchString(strings.TrimSpace(line))
}

var collapsedLineRegex = regexp.MustCompile(`^[^;]+(;[^;]+)*\s\d+$`)
