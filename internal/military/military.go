// Package military identifies military aircraft from callsign prefixes,
// registration patterns, and feed-reported category.
package military

import "strings"

// prefixEntry pairs an identifier prefix with the operating organization.
// Kept as an ordered slice so matching is deterministic.
type prefixEntry struct {
	prefix string
	info   string
}

var callsignPrefixes = []prefixEntry{
	// USA
	{"RCH", "US Air Force (Air Mobility Command)"},
	{"REACH", "US Air Force (Air Mobility Command)"},
	{"TOPCAT", "US Air Force (Refueling)"},
	{"SPAR", "US Military (Senior Presence, Airborne)"},
	{"SAM", "US Air Force (Special Air Mission - VIP)"},
	{"PAT", "US Army (Priority Air Transport)"},
	{"NAVY", "US Navy"},
	{"VM", "US Marine Corps"},
	{"CNV", "US Navy (Convoy)"},
	{"CONVOY", "US Navy (Convoy)"},
	{"EVAC", "US Air Force (Medical Evacuation)"},
	{"TABOO", "US Air Force (Tanker)"},
	{"QID", "US Air Force (KC-135 Tanker)"},
	{"QUID", "US Air Force (KC-135 Tanker)"},
	{"LAGR", "US Air Force (Fighter)"},
	{"DARK", "US Air Force (ISR)"},
	{"FORTE", "US Air Force (RQ-4 Global Hawk)"},
	{"HOMER", "US Air Force (RC-135)"},
	{"DUKE", "Military (General)"},
	{"KING", "Military (General)"},
	{"VIPER", "Military (Fighter)"},
	{"HAWK", "Military (General)"},
	{"EAGLE", "Military (Fighter)"},
	{"N00", "US Navy"},

	// United Kingdom
	{"RRR", "Royal Air Force (ASCOT)"},
	{"ASCOT", "Royal Air Force (Transport)"},
	{"SHF", "Royal Navy / RAF (Support Helicopter Force)"},
	{"AAC", "Army Air Corps"},
	{"SYS", "RAF Syerston (Training)"},
	{"TARTN", "Royal Air Force (Tanker)"},
	{"RAF", "Royal Air Force"},
	{"RFR", "Royal Air Force (Tanker)"},

	// Other NATO / International
	{"GAF", "German Air Force"},
	{"BAF", "Belgian Air Force"},
	{"FAF", "French Air Force"},
	{"CTM", "French Air Force (Transport)"},
	{"AME", "Spanish Air Force"},
	{"PLF", "Polish Air Force"},
	{"RDAF", "Royal Danish Air Force"},
	{"ASY", "Royal Australian Air Force"},
	{"CFC", "Canadian Armed Forces"},

	// Russian Military
	{"RFF", "Russian Air Force (Transport)"},
	{"RSD", "Russian State Flight"},

	// Jordanian Military
	{"SHAHD", "Royal Jordanian Air Force"},

	// Iranian Military Drones
	{"SHAHED", "Iranian Military (Shahed Drone)"},

	// Israeli Military
	{"IAF", "Israeli Air Force"},
	{"ISF", "Israeli Air Force"},

	// Singapore
	{"RSAF", "Republic of Singapore Air Force"},
}

var registrationPrefixes = []prefixEntry{
	{"ZZ", "United Kingdom (RAF)"},
	{"ZM", "United Kingdom (RAF)"},
	{"ZH", "United Kingdom (RAF)"},
	{"10+", "Germany (Luftwaffe)"},
	{"11+", "Germany (Luftwaffe)"},
	{"2+", "Germany (Helicopters/Jets)"},
	{"MM", "Italy (Aeronautica Militare)"},
	{"FAC", "Colombia (Fuerza Aérea Colombiana)"},
	{"FAH", "Honduras"},
	{"4XA", "Israel (IDF Aircraft)"},
	{"4XB", "Israel (IDF Aircraft)"},
	{"4XC", "Israel (IDF Aircraft)"},
}

// civilianCategories are categories that must never classify as military.
var civilianCategories = map[string]bool{
	"passenger":        true,
	"cargo":            true,
	"general_aviation": true,
	"private":          true,
	"charter":          true,
	"business":         true,
	"commercial":       true,
	"airline":          true,
}

// IsCivilianCategory reports whether a feed category is a known civilian one.
func IsCivilianCategory(category string) bool {
	return civilianCategories[strings.ToLower(category)]
}

// Identify detects a military aircraft from its callsign, registration, and
// category. The category short-circuits both ways: an explicit military
// category matches immediately, and callsign/registration checks still run
// for civilian categories (prefix matches are authoritative). Returns whether
// the aircraft is military and a description of the operating organization.
func Identify(callsign, registration, category string) (bool, string) {
	if cat := strings.ToLower(category); cat == "military_and_government" || cat == "military" {
		return true, "Military (Category)"
	}

	if callsign != "" {
		cs := strings.ToUpper(strings.TrimSpace(callsign))
		for _, e := range callsignPrefixes {
			if strings.HasPrefix(cs, e.prefix) {
				return true, e.info
			}
		}
	}

	if registration != "" {
		reg := strings.ToUpper(strings.TrimSpace(registration))
		for _, e := range registrationPrefixes {
			if strings.HasPrefix(reg, e.prefix) {
				return true, e.info
			}
		}
	}

	return false, ""
}

// Type extracts a coarse type category (transport, tanker, fighter, ISR, ...)
// from an organization description returned by Identify.
func Type(info string) string {
	if info == "" {
		return ""
	}
	lower := strings.ToLower(info)

	switch {
	case strings.Contains(lower, "transport"), strings.Contains(lower, "mobility"), strings.Contains(lower, "convoy"):
		return "transport"
	case strings.Contains(lower, "tanker"), strings.Contains(lower, "refuel"):
		return "tanker"
	case strings.Contains(lower, "fighter"):
		return "fighter"
	case strings.Contains(lower, "isr"), strings.Contains(lower, "recce"), strings.Contains(lower, "hawk"), strings.Contains(lower, "rc-135"):
		return "ISR"
	case strings.Contains(lower, "medical"), strings.Contains(lower, "evac"):
		return "medical"
	case strings.Contains(lower, "vip"), strings.Contains(lower, "special air mission"), strings.Contains(lower, "executive"):
		return "vip"
	case strings.Contains(lower, "helicopter"):
		return "helicopter"
	case strings.Contains(lower, "training"):
		return "training"
	case strings.Contains(lower, "drone"), strings.Contains(lower, "shahed"):
		return "drone"
	default:
		return "military"
	}
}
