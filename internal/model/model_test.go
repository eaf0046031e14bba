package model

import "testing"

func TestParseAssistance(t *testing.T) {
	cases := []struct {
		name string
		tags []string
		want Assistance
	}{
		{"empty list defaults to ambulatory", nil, AssistAmbulatory},
		{"ambulatory", []string{"ambulatory"}, AssistAmbulatory},
		{"wheelchair", []string{"wheelchair"}, AssistWheelchair},
		{"stretcher", []string{"stretcher"}, AssistStretcher},
		{"case insensitive", []string{"Wheelchair"}, AssistWheelchair},
		{"whitespace trimmed", []string{" stretcher "}, AssistStretcher},
		{"unknown tag counts as ambulatory", []string{"cane"}, AssistAmbulatory},
		{"combination", []string{"wheelchair", "stretcher"}, AssistWheelchair | AssistStretcher},
		{"all three", []string{"ambulatory", "wheelchair", "stretcher"},
			AssistAmbulatory | AssistWheelchair | AssistStretcher},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseAssistance(tc.tags); got != tc.want {
				t.Errorf("ParseAssistance(%v) = %d, want %d", tc.tags, got, tc.want)
			}
		})
	}
}

func TestAssistanceCode(t *testing.T) {
	cases := []struct {
		a    Assistance
		want string
	}{
		{AssistAmbulatory, "AMBI"},
		{AssistWheelchair, "WC"},
		{AssistStretcher, "GURAMBI"},
		{AssistStretcher | AssistWheelchair, "GURWC"},
		{AssistAmbulatory | AssistWheelchair, "WC"},
		{AssistAmbulatory | AssistWheelchair | AssistStretcher, "GURWC"},
	}
	for _, tc := range cases {
		if got := tc.a.Code(); got != tc.want {
			t.Errorf("Assistance(%d).Code() = %q, want %q", tc.a, got, tc.want)
		}
	}
}

func TestAssistanceHas(t *testing.T) {
	a := AssistWheelchair | AssistStretcher
	if !a.Has(AssistWheelchair) || !a.Has(AssistStretcher) {
		t.Error("Has missed set capabilities")
	}
	if a.Has(AssistAmbulatory) {
		t.Error("Has reported an unset capability")
	}
}

func TestPassengerKey(t *testing.T) {
	withID := &Booking{PassengerID: "p-42", FirstName: "Ada", LastName: "Lovelace"}
	if got := withID.PassengerKey(); got != "p-42" {
		t.Errorf("PassengerKey = %q, want p-42", got)
	}

	noID := &Booking{FirstName: "Ada", LastName: "Lovelace"}
	if got := noID.PassengerKey(); got != "Ada Lovelace" {
		t.Errorf("PassengerKey = %q, want full name fallback", got)
	}
}
