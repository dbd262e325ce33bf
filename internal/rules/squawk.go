package rules

import (
	"context"
	"strings"
)

// EmergencySquawkRule flags any point transmitting an emergency transponder
// code (7500 hijack, 7600 radio failure, 7700 general emergency).
type EmergencySquawkRule struct{}

func (r *EmergencySquawkRule) ID() int      { return 1 }
func (r *EmergencySquawkRule) Name() string { return "Emergency squawk" }

// SquawkEvent is one emergency code transmission.
type SquawkEvent struct {
	Timestamp int64  `json:"timestamp"`
	Squawk    string `json:"squawk"`
}

// SquawkDetails lists every emergency transmission in the track.
type SquawkDetails struct {
	Events []SquawkEvent `json:"events"`
}

func (r *EmergencySquawkRule) Evaluate(_ context.Context, rc *Context) Result {
	codes := make(map[string]bool, len(rc.Cfg.Rules.EmergencySquawk.Codes))
	for _, c := range rc.Cfg.Rules.EmergencySquawk.Codes {
		codes[c] = true
	}

	var events []SquawkEvent
	for _, p := range rc.Points {
		sq := strings.TrimSpace(svalue(p.Squawk))
		if sq != "" && codes[sq] {
			events = append(events, SquawkEvent{Timestamp: p.Timestamp, Squawk: sq})
		}
	}

	matched := len(events) > 0
	summary := "No emergency squawk detected"
	if matched {
		summary = "Emergency code transmitted"
	}
	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: SquawkDetails{Events: events}}
}
