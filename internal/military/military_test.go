package military

import "testing"

func TestIdentify(t *testing.T) {
	tests := []struct {
		name         string
		callsign     string
		registration string
		category     string
		wantMil      bool
	}{
		{"usaf transport callsign", "RCH471", "", "", true},
		{"raf callsign", "RRR6204", "", "", true},
		{"israeli af callsign", "IAF123", "", "", true},
		{"lowercase callsign", "rch471", "", "", true},
		{"padded callsign", "  RCH471 ", "", "", true},
		{"idf registration", "", "4XCAB", "", true},
		{"raf registration", "", "ZZ338", "", true},
		{"military category", "ELY321", "", "military_and_government", true},
		{"civilian airliner", "ELY321", "4XEKA", "passenger", false},
		{"empty everything", "", "", "", false},
		{"civilian category does not block prefix", "NAVY01", "", "passenger", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMil, info := Identify(tt.callsign, tt.registration, tt.category)
			if gotMil != tt.wantMil {
				t.Errorf("Identify(%q, %q, %q) = %v, want %v",
					tt.callsign, tt.registration, tt.category, gotMil, tt.wantMil)
			}
			if gotMil && info == "" {
				t.Error("military match returned empty organization")
			}
			if !gotMil && info != "" {
				t.Errorf("non-match returned organization %q", info)
			}
		})
	}
}

func TestType(t *testing.T) {
	tests := []struct {
		info string
		want string
	}{
		{"US Air Force (Air Mobility Command)", "transport"},
		{"US Air Force (KC-135 Tanker)", "tanker"},
		{"Military (Fighter)", "fighter"},
		{"US Air Force (RC-135)", "ISR"},
		{"US Air Force (Medical Evacuation)", "medical"},
		{"US Air Force (Special Air Mission - VIP)", "vip"},
		{"Iranian Military (Shahed Drone)", "drone"},
		{"Israeli Air Force", "military"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Type(tt.info); got != tt.want {
			t.Errorf("Type(%q) = %q, want %q", tt.info, got, tt.want)
		}
	}
}

func TestIsCivilianCategory(t *testing.T) {
	for _, cat := range []string{"passenger", "Cargo", "GENERAL_AVIATION"} {
		if !IsCivilianCategory(cat) {
			t.Errorf("IsCivilianCategory(%q) = false, want true", cat)
		}
	}
	for _, cat := range []string{"military", "", "unknown"} {
		if IsCivilianCategory(cat) {
			t.Errorf("IsCivilianCategory(%q) = true, want false", cat)
		}
	}
}
