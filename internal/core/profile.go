package core

import (
	"math"
	"strings"

	"rentshare-backend-go/internal/models"
)

const profileChecks = 6

// EvaluateProfileCompletion scores a user snapshot against the six profile checks.
// Blank and whitespace-only values count as missing. It never fails.
func EvaluateProfileCompletion(user *models.User) models.ProfileCompletion {
	if user == nil {
		user = &models.User{}
	}
	d := models.ProfileCompletionDetails{
		IsEmailVerified:   user.EmailVerified,
		HasProfileImage:   present(user.ProfileImage),
		HasContact:        present(user.ContactNumber),
		HasBirthday:       present(user.Birthday),
		HasLocation:       present(user.Location),
		HasIDVerification: user.IDVerification != nil && present(user.IDVerification.DocumentURL),
	}

	checks := []struct {
		ok    bool
		label string
	}{
		{d.IsEmailVerified, "Email Verification"},
		{d.HasProfileImage, "Profile Image"},
		{d.HasContact, "Contact Number"},
		{d.HasBirthday, "Birthday"},
		{d.HasLocation, "Location"},
		{d.HasIDVerification, "ID Verification"},
	}

	passed := 0
	missing := []string{}
	for _, c := range checks {
		if c.ok {
			passed++
			continue
		}
		missing = append(missing, c.label)
	}

	return models.ProfileCompletion{
		CompletionPercentage: int(math.Round(float64(passed) / profileChecks * 100)),
		MissingFields:        missing,
		Details:              d,
	}
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
