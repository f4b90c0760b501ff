package enums

import "testing"

func TestVideoStatusTerminality(t *testing.T) {
	tests := []struct {
		status   VideoStatus
		terminal bool
	}{
		{VideoStatusProcessing, false},
		{VideoStatusQueued, false},
		{VideoStatusCompleted, true},
		{VideoStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Fatalf("%s terminal=%v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestParseVideoStatus(t *testing.T) {
	if _, err := ParseVideoStatus("queued"); err != nil {
		t.Fatalf("queued should parse: %v", err)
	}
	if _, err := ParseVideoStatus("done"); err == nil {
		t.Fatal("unknown status should not parse")
	}
}

func TestParseVideoModel(t *testing.T) {
	for _, raw := range []string{"sora-2", "sora-2-pro", "sora-2-pro-HD"} {
		if _, err := ParseVideoModel(raw); err != nil {
			t.Fatalf("%s should parse: %v", raw, err)
		}
	}
	if _, err := ParseVideoModel("sora-1"); err == nil {
		t.Fatal("unknown model should not parse")
	}
}

func TestVideoSizeDimensions(t *testing.T) {
	if w, h := VideoSizeLandscape.Width(), VideoSizeLandscape.Height(); w != 1280 || h != 720 {
		t.Fatalf("landscape dimensions wrong: %dx%d", w, h)
	}
	if w, h := VideoSizePortrait.Width(), VideoSizePortrait.Height(); w != 720 || h != 1280 {
		t.Fatalf("portrait dimensions wrong: %dx%d", w, h)
	}
	if _, err := ParseVideoSize("1920x1080"); err == nil {
		t.Fatal("unsupported size should not parse")
	}
}

func TestParseVideoDuration(t *testing.T) {
	for _, v := range []int{4, 8, 12} {
		if _, err := ParseVideoDuration(v); err != nil {
			t.Fatalf("%d should parse: %v", v, err)
		}
	}
	if _, err := ParseVideoDuration(10); err == nil {
		t.Fatal("10 seconds is not a supported duration")
	}
}
