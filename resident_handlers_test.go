package main

import (
	"strings"
	"testing"
)

func validResidentInput() residentInput {
	return residentInput{
		NationalIDNumber: "3201010101010001",
		FullName:         "Budi Santoso",
		BirthDate:        "1985-04-12",
		Gender:           "L",
		Blok:             "A1",
		Address:          "Jl. Melati 5",
		PhoneNumber:      "08123456789",
		FamilyMembers: []familyMemberInput{
			{FullName: "Siti", BirthDate: "1990-02-03", Gender: "P", Relationship: "ISTRI"},
		},
	}
}

func TestResidentInputLengthsCountCharacters(t *testing.T) {
	cases := []struct {
		name string
		edit func(in *residentInput)
		ok   bool
	}{
		{"two-byte full name at limit", func(in *residentInput) { in.FullName = strings.Repeat("é", 100) }, true},
		{"full name over limit", func(in *residentInput) { in.FullName = strings.Repeat("é", 101) }, false},
		{"two-byte blok at limit", func(in *residentInput) { in.Blok = strings.Repeat("ö", 50) }, true},
		{"three-byte address at limit", func(in *residentInput) { in.Address = strings.Repeat("ร", 255) }, true},
		{"address over limit", func(in *residentInput) { in.Address = strings.Repeat("a", 256) }, false},
		{"phone at limit", func(in *residentInput) { in.PhoneNumber = strings.Repeat("٠", 30) }, true},
		{"short national id", func(in *residentInput) { in.NationalIDNumber = "1234567" }, false},
		{"family name at limit", func(in *residentInput) { in.FamilyMembers[0].FullName = strings.Repeat("ñ", 100) }, true},
		{"family name over limit", func(in *residentInput) { in.FamilyMembers[0].FullName = strings.Repeat("ñ", 101) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validResidentInput()
			tc.edit(&in)
			dates, err := in.validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected a validation error")
			}
			if tc.ok && len(dates) != 2 {
				t.Fatalf("dates = %v", dates)
			}
		})
	}
}
