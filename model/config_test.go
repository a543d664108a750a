package model

import "testing"

func TestParse(t *testing.T) {
	testCases := []struct {
		name    string
		kind    Kind
		raw     string
		wantErr bool
		check   func(Value) bool
	}{
		{"string", String, "#6366f1", false, func(v Value) bool { return v.String() == "#6366f1" }},
		{"bool true", Bool, "true", false, func(v Value) bool { return v.Bool() }},
		{"bool padded", Bool, " FALSE ", false, func(v Value) bool { return !v.Bool() && v.Raw() == "false" }},
		{"bool invalid", Bool, "yes please", true, nil},
		{"number", Number, "0.5", false, func(v Value) bool { return v.Number() == 0.5 }},
		{"number invalid", Number, "half", true, nil},
		{"bytes", Bytes, "10MB", false, func(v Value) bool { return v.Bytes() == 10*1000*1000 }},
		{"bytes invalid", Bytes, "ten", true, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Parse(tc.kind, tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error parsing %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tc.kind {
				t.Errorf("expected kind %s, got %s", tc.kind, v.Kind())
			}
			if !tc.check(v) {
				t.Errorf("unexpected value %+v", v)
			}
		})
	}
}

func TestSchemaDefaultsParse(t *testing.T) {
	seen := map[Key]bool{}
	for _, d := range Schema {
		if seen[d.Key] {
			t.Errorf("duplicate key %s", d.Key)
		}
		seen[d.Key] = true
		if _, err := Parse(d.Kind, d.Default); err != nil {
			t.Errorf("default for %s does not parse: %v", d.Key, err)
		}
	}
	if len(Schema) != 32 {
		t.Errorf("expected 32 keys, got %d", len(Schema))
	}
}

func TestSnapshotCoversSchema(t *testing.T) {
	snap := NewSnapshot(3, map[Key]Value{
		PrimaryColor: MustParse(String, "#000000"),
	})
	if snap.Version() != 3 {
		t.Errorf("expected version 3, got %d", snap.Version())
	}
	for _, d := range Schema {
		if _, ok := snap.Lookup(d.Key); !ok {
			t.Errorf("snapshot is missing %s", d.Key)
		}
	}
	if got := snap.String(PrimaryColor); got != "#000000" {
		t.Errorf("expected #000000, got %s", got)
	}
	if got := snap.String(SecondaryColor); got != "#8b5cf6" {
		t.Errorf("expected default #8b5cf6, got %s", got)
	}
	if got := snap.Get(Key("unknown")).String(); got != "" {
		t.Errorf("expected empty value for unknown key, got %q", got)
	}
}

func TestDefaults(t *testing.T) {
	snap := Defaults()
	if got := snap.String(PrimaryColor); got != "#6366f1" {
		t.Errorf("expected #6366f1, got %s", got)
	}
	if snap.Bool(MaintenanceMode) {
		t.Error("maintenance mode should default to false")
	}
	if got := snap.Get(MaxFileUploadSize).Bytes(); got != 10*1000*1000 {
		t.Errorf("expected 10MB, got %d", got)
	}
	raw := snap.Raw()
	if raw["enable_animations"] != "true" {
		t.Errorf("expected raw enable_animations true, got %q", raw["enable_animations"])
	}
	if !snap.Equal(Defaults()) {
		t.Error("defaults should equal defaults")
	}
	other := NewSnapshot(1, map[Key]Value{CTAText: MustParse(String, "Go")})
	if snap.Equal(other) {
		t.Error("snapshots with different values should not be equal")
	}
}
