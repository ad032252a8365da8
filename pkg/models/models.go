package models

import "time"

// UserInfo is the flattened, transformed form of one fetched user
type UserInfo struct {
	FullName       string    `json:"full_name"`
	Gender         string    `json:"gender"`
	Email          string    `json:"email"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Age            int       `json:"age"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Country        string    `json:"country"`
	Phone          string    `json:"phone"`
	Nationality    string    `json:"nationality"`
	TimezoneOffset int       `json:"timezone_offset"` // minutes east of UTC
	Username       string    `json:"username"`
	Password       string    `json:"password"`
	HashUser       string    `json:"hash_user"`
}

// DOBISO renders the date of birth the way it is printed and stored
func (u UserInfo) DOBISO() string {
	return u.DateOfBirth.Format("2006-01-02T15:04:05")
}
