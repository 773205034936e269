package encounter

import (
	"errors"
	"testing"
	"time"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

func at(day int) *time.Time {
	t := time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC)
	return &t
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindEncounter, false},
		{"Encounter", KindEncounter, false},
		{"ProgramEncounter", KindProgramEncounter, false},
		{"ProgramEnrolment", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKind_Table(t *testing.T) {
	if KindEncounter.Table() != "encounter" || KindProgramEncounter.Table() != "program_encounter" {
		t.Error("unexpected table mapping")
	}
	if KindEncounter.parentColumn() != "individual_id" || KindProgramEncounter.parentColumn() != "program_enrolment_id" {
		t.Error("unexpected parent column mapping")
	}
}

func TestEncounterType_IsActive(t *testing.T) {
	off := false
	if !(&EncounterType{}).IsActive() {
		t.Error("expected unset active flag to mean active")
	}
	if (&EncounterType{Active: &off}).IsActive() {
		t.Error("expected explicit false to be inactive")
	}
}

func TestSetEncounterDateTime_FilledByOnFirstSetOnly(t *testing.T) {
	first := auth.User{ID: 1, Username: "first"}
	second := auth.User{ID: 2, Username: "second"}
	e := &Encounter{}

	e.SetEncounterDateTime(nil, first)
	if e.FilledByID != nil {
		t.Fatal("expected no attribution while datetime stays unset")
	}

	e.SetEncounterDateTime(at(1), first)
	if e.FilledByID == nil || *e.FilledByID != 1 {
		t.Fatalf("expected filled by user 1, got %v", e.FilledByID)
	}

	e.SetEncounterDateTime(at(2), second)
	if *e.FilledByID != 1 {
		t.Errorf("expected attribution to stay with user 1, got %d", *e.FilledByID)
	}
	if !e.EncounterDateTime.Equal(*at(2)) {
		t.Errorf("expected datetime to be updated, got %v", e.EncounterDateTime)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		e        Encounter
		wantFail bool
	}{
		{"both nil", Encounter{}, true},
		{"encounter datetime only", Encounter{EncounterDateTime: at(1)}, false},
		{"earliest visit only", Encounter{EarliestVisitDateTime: at(1)}, false},
		{"both set", Encounter{EncounterDateTime: at(1), EarliestVisitDateTime: at(1)}, false},
		{"only cancel and max visit", Encounter{CancelDateTime: at(1), MaxVisitDateTime: at(2)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if tt.wantFail {
				if !validation.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if err.Error() != "Both encounter datetime and earliest visit datetime cannot be null" {
					t.Errorf("unexpected message %q", err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCompletedAndCancelledAreIndependent(t *testing.T) {
	e := &Encounter{}
	if e.IsCompleted() || e.IsCancelled() {
		t.Fatal("expected a fresh encounter to be neither completed nor cancelled")
	}
	e.EncounterDateTime = at(1)
	e.CancelDateTime = at(2)
	if !e.IsCompleted() || !e.IsCancelled() {
		t.Error("expected both flags to hold together")
	}
}

func TestDateFallsWithin(t *testing.T) {
	e := &Encounter{EarliestVisitDateTime: at(5), MaxVisitDateTime: at(10)}

	tests := []struct {
		t    *time.Time
		want bool
	}{
		{at(4), false},
		{at(5), false},
		{at(7), true},
		{at(10), false},
		{at(11), false},
	}
	for _, tt := range tests {
		got, err := e.DateFallsWithin(*tt.t)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("DateFallsWithin(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}

	_, err := (&Encounter{EarliestVisitDateTime: at(5)}).DateFallsWithin(*at(6))
	if !errors.Is(err, ErrVisitWindowUnset) {
		t.Errorf("expected ErrVisitWindowUnset, got %v", err)
	}
}

func TestIsEncounteredOrCancelledBetween(t *testing.T) {
	start, end := *at(5), *at(10)

	tests := []struct {
		name string
		e    Encounter
		want bool
	}{
		{"neither", Encounter{}, false},
		{"encountered on start", Encounter{EncounterDateTime: at(5)}, true},
		{"encountered on end", Encounter{EncounterDateTime: at(10)}, true},
		{"encountered before", Encounter{EncounterDateTime: at(4)}, false},
		{"cancelled inside", Encounter{CancelDateTime: at(8)}, true},
		{"encountered outside, cancelled inside", Encounter{EncounterDateTime: at(1), CancelDateTime: at(6)}, true},
		{"both outside", Encounter{EncounterDateTime: at(1), CancelDateTime: at(12)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.IsEncounteredOrCancelledBetween(start, end); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	name := "ANC 1"
	e := &Encounter{Name: &name, EncounterType: &EncounterType{Name: "ANC"}}

	if !e.Matches("ANC", "ANC 1") {
		t.Error("expected match")
	}
	if e.Matches("ANC", "ANC 2") || e.Matches("PNC", "ANC 1") {
		t.Error("expected mismatch")
	}
	unnamed := &Encounter{EncounterType: &EncounterType{Name: "ANC"}}
	if !unnamed.Matches("ANC", "") {
		t.Error("expected unnamed encounter to match empty name")
	}
	if (&Encounter{}).Matches("ANC", "") {
		t.Error("expected no match without a loaded type")
	}
}
