package langdetect

import "testing"

func TestDetectEnglishHeadline(t *testing.T) {
	t.Parallel()

	got := DetectItem("Apple ships the Vision Pro headset to customers", "The company said the device would be available in stores across the country this weekend.")
	if got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
}

func TestDetectGermanHeadline(t *testing.T) {
	t.Parallel()

	got := Detect("Die Bundesregierung hat am Mittwoch neue Regeln für den Wohnungsbau beschlossen")
	if got != "de" {
		t.Fatalf("expected de, got %q", got)
	}
}

func TestDetectShortSampleIsEmpty(t *testing.T) {
	t.Parallel()

	if got := Detect("  AI  "); got != "" {
		t.Fatalf("expected empty code for short sample, got %q", got)
	}
	if got := DetectItem("", ""); got != "" {
		t.Fatalf("expected empty code for blank sample, got %q", got)
	}
}
