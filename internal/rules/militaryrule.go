package rules

import (
	"context"
	"fmt"

	"github.com/yegors/skywatch/internal/military"
)

// MilitaryRule identifies military aircraft from callsign and registration
// prefixes and the feed-reported category.
type MilitaryRule struct{}

func (r *MilitaryRule) ID() int      { return 13 }
func (r *MilitaryRule) Name() string { return "Military aircraft" }

// MilitaryDetails carries the identification evidence.
type MilitaryDetails struct {
	Callsign        string `json:"callsign,omitempty"`
	Organization    string `json:"organization,omitempty"`
	MilitaryType    string `json:"military_type,omitempty"`
	DetectionMethod string `json:"detection_method,omitempty"`
}

func (r *MilitaryRule) Evaluate(_ context.Context, rc *Context) Result {
	if len(rc.Points) == 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No track data"}
	}

	var callsign, registration, category string
	if rc.Metadata != nil {
		callsign = rc.Metadata.Callsign
		registration = rc.Metadata.Registration
		category = rc.Metadata.Category
	}
	if callsign == "" {
		for _, p := range rc.Points {
			if cs := svalue(p.Callsign); cs != "" {
				callsign = cs
				break
			}
		}
	}

	isMilitary, orgInfo := military.Identify(callsign, registration, category)
	if isMilitary {
		method := "registration"
		if callsign != "" {
			method = "callsign"
		}
		return Result{
			RuleID:  r.ID(),
			Matched: true,
			Summary: fmt.Sprintf("Military aircraft detected: %s", orgInfo),
			Details: MilitaryDetails{
				Callsign:        callsign,
				Organization:    orgInfo,
				MilitaryType:    military.Type(orgInfo),
				DetectionMethod: method,
			},
		}
	}

	return Result{
		RuleID:  r.ID(),
		Matched: false,
		Summary: "No military identification",
		Details: MilitaryDetails{Callsign: callsign},
	}
}
