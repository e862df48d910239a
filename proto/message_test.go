package proto

import "testing"

func TestMessageIntRoundTrip(t *testing.T) {
	m := New(MidiEvent).AddInt(9).AddInt(0).AddInt(60).AddInt(100).AddInt(0)
	want := []int32{9, 0, 60, 100, 0}
	for i, w := range want {
		if got := m.Int(i); got != w {
			t.Errorf("Int(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestMessageIntOutOfRange(t *testing.T) {
	m := New(BufferSizeInformation)
	if got := m.Int(0); got != 0 {
		t.Errorf("Int(0) on empty args = %d, want 0", got)
	}
	if got := m.Int(-1); got != 0 {
		t.Errorf("Int(-1) = %d, want 0", got)
	}
}

func TestMessageStringOutOfRange(t *testing.T) {
	m := New(SaveSettingsToFile).AddString("preset.xml")
	if got := m.String(5); got != "" {
		t.Errorf("String(5) = %q, want empty", got)
	}
}

func TestIDString(t *testing.T) {
	cases := map[ID]string{
		Undefined:             "Undefined",
		GeneralFailure:        "GeneralFailure",
		ChangeSharedMemoryKey: "ChangeSharedMemoryKey",
		UserBase:              "User",
		UserBase + 5:          "User",
	}
	for id, want := range cases {
		if got := id.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", id, got, want)
		}
	}
}

func TestMessageIDValuesMatchWireEnumeration(t *testing.T) {
	cases := []struct {
		id   ID
		want int32
	}{
		{Undefined, 0},
		{GeneralFailure, 1},
		{InitDone, 2},
		{ClosePlugin, 3},
		{SampleRateInformation, 4},
		{BufferSizeInformation, 5},
		{MidiEvent, 6},
		{StartProcessing, 7},
		{ProcessingDone, 8},
		{ChangeSharedMemoryKey, 9},
		{ChangeInputCount, 10},
		{ChangeOutputCount, 11},
		{ShowUI, 12},
		{HideUI, 13},
		{SaveSettingsToFile, 14},
		{SaveSettingsToString, 15},
		{LoadSettingsFromFile, 16},
		{LoadSettingsFromString, 17},
		{LoadPresetFromFile, 18},
		{UserBase, 64},
	}
	for _, c := range cases {
		if int32(c.id) != c.want {
			t.Errorf("%v = %d, want %d", c.id, int32(c.id), c.want)
		}
	}
}
