package core

import (
	"reflect"
	"testing"

	"rentshare-backend-go/internal/models"
)

func TestEvaluateProfileCompletion(t *testing.T) {
	full := &models.User{
		EmailVerified:  true,
		ProfileImage:   "https://files.test/a.jpg",
		ContactNumber:  "+639171234567",
		Birthday:       "1990-04-01",
		Location:       "Quezon City",
		IDVerification: &models.IDVerification{DocumentURL: "https://files.test/id.enc"},
	}

	tests := []struct {
		name    string
		user    *models.User
		pct     int
		missing []string
	}{
		{"nil user", nil, 0, []string{"Email Verification", "Profile Image", "Contact Number", "Birthday", "Location", "ID Verification"}},
		{"complete", full, 100, []string{}},
		{"whitespace counts as missing", &models.User{EmailVerified: true, Location: "   ", ContactNumber: "\t"}, 17,
			[]string{"Profile Image", "Contact Number", "Birthday", "Location", "ID Verification"}},
		{"half", &models.User{EmailVerified: true, ProfileImage: "x", Birthday: "2000-01-01"}, 50,
			[]string{"Contact Number", "Location", "ID Verification"}},
		{"id verification without url", &models.User{IDVerification: &models.IDVerification{Status: "submitted"}}, 0,
			[]string{"Email Verification", "Profile Image", "Contact Number", "Birthday", "Location", "ID Verification"}},
		{"five of six", &models.User{EmailVerified: true, ProfileImage: "x", ContactNumber: "1", Birthday: "b", Location: "l"}, 83,
			[]string{"ID Verification"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateProfileCompletion(tt.user)
			if got.CompletionPercentage != tt.pct {
				t.Errorf("percentage = %d, want %d", got.CompletionPercentage, tt.pct)
			}
			if !reflect.DeepEqual(got.MissingFields, tt.missing) {
				t.Errorf("missing = %v, want %v", got.MissingFields, tt.missing)
			}
		})
	}
}

func TestEvaluateProfileCompletionIsDeterministic(t *testing.T) {
	u := &models.User{EmailVerified: true, Location: "Cebu"}
	first := EvaluateProfileCompletion(u)
	for i := 0; i < 5; i++ {
		if got := EvaluateProfileCompletion(u); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d = %+v, want %+v", i, got, first)
		}
	}
	if !first.Details.IsEmailVerified || !first.Details.HasLocation || first.Details.HasBirthday {
		t.Errorf("details = %+v", first.Details)
	}
}
