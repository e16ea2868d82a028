package callsite

// Statistic names exposed by Timing.
const (
	StatDuration = "Duration"
	StatSelfTime = "Self Time"
	StatCPUTime  = "CPU Time"
	StatCalls    = "Number of Calls"
)

// TimeUnknown marks a CPU time that was not measured.
const TimeUnknown int64 = -1

// Timing is the payload of call sites built from instrumented (span)
// data. The call site weight is the aggregated duration.
type Timing struct {
	Duration    int64
	SelfTime    int64
	CPUTime     int64
	Calls       int64
	MinDuration int64
	MaxDuration int64
}

// NewInstrumented creates a call site for one observed call lasting
// duration. cpuTime may be TimeUnknown.
func NewInstrumented(symbol Symbol, duration, cpuTime int64) *CallSite {
	site := New(symbol, duration)
	site.payload = &Timing{
		Duration:    duration,
		SelfTime:    duration,
		CPUTime:     cpuTime,
		Calls:       1,
		MinDuration: duration,
		MaxDuration: duration,
	}
	return site
}

// TimingOf returns the timing payload of site, or nil.
func TimingOf(site *CallSite) *Timing {
	t, _ := site.payload.(*Timing)
	return t
}

// Merge implements Payload.
func (t *Timing) Merge(other Payload) {
	o, ok := other.(*Timing)
	if !ok {
		return
	}
	if t.Calls == 0 {
		t.MinDuration = o.MinDuration
	} else if o.Calls > 0 && o.MinDuration < t.MinDuration {
		t.MinDuration = o.MinDuration
	}
	if o.MaxDuration > t.MaxDuration {
		t.MaxDuration = o.MaxDuration
	}
	t.Duration += o.Duration
	t.SelfTime += o.SelfTime
	t.Calls += o.Calls
	if o.CPUTime != TimeUnknown {
		if t.CPUTime == TimeUnknown {
			t.CPUTime = 0
		}
		t.CPUTime += o.CPUTime
	}
}

// Copy implements Payload.
func (t *Timing) Copy() Payload {
	dup := *t
	return &dup
}

// Statistic implements Payload.
func (t *Timing) Statistic(name string) (int64, bool) {
	switch name {
	case StatDuration:
		return t.Duration, true
	case StatSelfTime:
		return t.SelfTime, true
	case StatCPUTime:
		if t.CPUTime == TimeUnknown {
			return 0, false
		}
		return t.CPUTime, true
	case StatCalls:
		return t.Calls, true
	}
	return 0, false
}

// AverageDuration returns the mean duration of one call.
func (t *Timing) AverageDuration() float64 {
	if t.Calls == 0 {
		return 0
	}
	return float64(t.Duration) / float64(t.Calls)
}
