package resilience

import (
	"fmt"
	"strings"
	"time"

	"github.com/mohitkumar/eventflow/util"
)

const ServiceName = "resilience.handler"

const (
	MAX_ATTEMPTS    = "max_attempts"
	ATTEMPT         = "attempt"
	STATUS          = "status"
	MESSAGE         = "message"
	ALTERNATE       = "alternate"
	DELAY           = "delay"
	CUMULATIVE      = "cumulative"
	BACKOFF         = "backoff"
	BACKOFF_TRIGGER = "backoff_trigger"
	BACKOFF_SECONDS = "backoff_seconds"
	DECISION        = "decision"
)

// Decisions map to the next tasks of the handler: retry the original task,
// abort, or take the alternate path.
const (
	DECISION_RETRY   = 1
	DECISION_ABORT   = 2
	DECISION_REROUTE = 3
)

const minDelay = 10 * time.Millisecond

// Evaluate decides what the flow does after a failure. The returned hold is
// the throttle the caller must wait before acting on a retry or reroute.
func Evaluate(input map[string]any, now time.Time) (map[string]any, time.Duration) {
	cumulative := max(0, util.ToInt(valueOf(input, CUMULATIVE, 0)))
	nowMs := now.UnixMilli()
	result := make(map[string]any)
	if _, ok := input[BACKOFF]; ok {
		lastBackoff := util.ToLong(valueOf(input, BACKOFF, 0))
		if nowMs < lastBackoff {
			diff := max(1, (lastBackoff-nowMs)/1000)
			result[DECISION] = DECISION_ABORT
			result[STATUS] = 503
			result[MESSAGE] = unavailable(diff)
			result[BACKOFF] = lastBackoff
			return result, 0
		}
		cumulative = 0
	}
	status := max(200, util.ToInt(valueOf(input, STATUS, 200)))
	if status == 200 {
		result[DECISION] = DECISION_RETRY
		return result, 0
	}
	_, hasTrigger := input[BACKOFF_TRIGGER]
	_, hasSeconds := input[BACKOFF_SECONDS]
	if hasTrigger && hasSeconds {
		trigger := max(1, util.ToInt(valueOf(input, BACKOFF_TRIGGER, 1)))
		seconds := max(1, util.ToLong(valueOf(input, BACKOFF_SECONDS, 1)))
		cumulative++
		if cumulative > trigger {
			result[DECISION] = DECISION_ABORT
			result[STATUS] = 503
			result[MESSAGE] = unavailable(seconds)
			result[BACKOFF] = nowMs + seconds*1000
			return result, 0
		}
	}
	var routing *alternatePath
	if alt, ok := input[ALTERNATE]; ok {
		routing = newAlternatePath(util.ToText(alt))
	}
	maxAttempt := max(1, util.ToInt(valueOf(input, MAX_ATTEMPTS, 1)))
	attempt := max(0, util.ToInt(valueOf(input, ATTEMPT, 0)))
	delay := max(minDelay, time.Duration(util.ToLong(valueOf(input, DELAY, 10)))*time.Millisecond)

	attempt++
	result[ATTEMPT] = attempt
	result[CUMULATIVE] = cumulative
	if attempt > maxAttempt {
		result[DECISION] = DECISION_ABORT
		result[STATUS] = status
		result[MESSAGE] = util.ToText(valueOf(input, MESSAGE, "Runtime exception"))
		return result, 0
	}
	var hold time.Duration
	if attempt > 1 {
		hold = delay
	}
	if routing != nil && routing.needReroute(status) {
		result[DECISION] = DECISION_REROUTE
	} else {
		result[DECISION] = DECISION_RETRY
	}
	return result, hold
}

func valueOf(input map[string]any, key string, def any) any {
	if v, ok := input[key]; ok && v != nil {
		return v
	}
	return def
}

func unavailable(seconds int64) string {
	unit := "seconds"
	if seconds == 1 {
		unit = "second"
	}
	return fmt.Sprintf("Service temporarily not available - please try again in %d %s", seconds, unit)
}

type statusRange struct {
	low, high int
}

type alternatePath struct {
	codes  map[int]bool
	ranges []statusRange
}

// newAlternatePath parses "502-504, 520". Codes and range ends must be above 200.
func newAlternatePath(codes string) *alternatePath {
	ap := &alternatePath{codes: make(map[int]bool)}
	for _, item := range strings.Split(codes, ",") {
		s := strings.TrimSpace(item)
		if s == "" {
			continue
		}
		if idx := strings.IndexByte(s, '-'); idx >= 0 {
			n1 := util.ToInt(s[:idx])
			n2 := util.ToInt(s[idx+1:])
			if n1 > 200 && n2 > 200 {
				ap.ranges = append(ap.ranges, statusRange{low: min(n1, n2), high: max(n1, n2)})
			}
			continue
		}
		if rc := util.ToInt(s); rc > 200 {
			ap.codes[rc] = true
		}
	}
	return ap
}

func (ap *alternatePath) needReroute(status int) bool {
	if ap.codes[status] {
		return true
	}
	for _, r := range ap.ranges {
		if status >= r.low && status <= r.high {
			return true
		}
	}
	return false
}
