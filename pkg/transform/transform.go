// Package transform maps raw API records onto models.UserInfo.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "useretl/pkg/errors"
	"useretl/pkg/models"
	"useretl/pkg/randomuser"
)

// DOBLayout is the only accepted date of birth format. The fraction must be
// exactly three digits; the API has always sent milliseconds, so other
// precisions are reported as a parse error rather than accepted.
const DOBLayout = "2006-01-02T15:04:05.000Z"

// Transform converts raw using the current time for the age calculation
func Transform(raw *randomuser.User) (models.UserInfo, error) {
	return TransformAt(raw, time.Now())
}

// TransformAt converts raw, computing the age as of now
func TransformAt(raw *randomuser.User, now time.Time) (models.UserInfo, error) {
	if raw == nil {
		return models.UserInfo{}, errs.Parse("transform", fmt.Errorf("nil record"))
	}

	dob, err := time.Parse(DOBLayout, raw.DOB.Date)
	if err != nil {
		return models.UserInfo{}, errs.Parse("parse dob", err)
	}

	return models.UserInfo{
		FullName:       raw.Name.First + " " + raw.Name.Last,
		Gender:         raw.Gender,
		Email:          raw.Email,
		DateOfBirth:    dob,
		Age:            Age(dob, now),
		City:           raw.Location.City,
		State:          raw.Location.State,
		Country:        raw.Location.Country,
		Phone:          raw.Phone,
		Nationality:    raw.Nat,
		TimezoneOffset: ConvertOffset(raw.Location.Timezone.Offset),
		Username:       raw.Login.Username,
		Password:       raw.Login.Password,
		HashUser:       HashUser(raw.Login.Username, raw.Login.Password),
	}, nil
}

// Age returns whole years between dob and now. A birthday falling on now
// counts as already reached.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// ConvertOffset turns "+HH:MM" or "-HH:MM" into signed minutes. Any leading
// character other than '+' is read as negative; anything unparseable is 0.
func ConvertOffset(offset string) int {
	if len(offset) < 2 {
		return 0
	}

	sign := -1
	if offset[0] == '+' {
		sign = 1
	}

	parts := strings.Split(offset[1:], ":")
	if len(parts) != 2 {
		return 0
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}

	return sign * (hours*60 + minutes)
}

// HashUser concatenates the reversed username with the password rotated
// right by two characters. Passwords of two characters or fewer are kept.
func HashUser(username, password string) string {
	return reverse(username) + rotate(password)
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func rotate(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return s
	}
	return string(r[len(r)-2:]) + string(r[:len(r)-2])
}
