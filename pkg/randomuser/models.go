package randomuser

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Response is the top-level document returned by the API
type Response struct {
	Results []User `json:"results"`
	Info    Info   `json:"info"`
	Error   string `json:"error,omitempty"`
}

// Info carries the request metadata echoed by the API
type Info struct {
	Seed    string `json:"seed"`
	Results int    `json:"results"`
	Page    int    `json:"page"`
	Version string `json:"version"`
}

// User is one raw record as served by the API
type User struct {
	Gender   string   `json:"gender"`
	Name     Name     `json:"name"`
	Location Location `json:"location"`
	Email    string   `json:"email"`
	Login    Login    `json:"login"`
	DOB      Dated    `json:"dob"`
	Phone    string   `json:"phone"`
	Cell     string   `json:"cell"`
	Nat      string   `json:"nat"`
}

type Name struct {
	Title string `json:"title"`
	First string `json:"first"`
	Last  string `json:"last"`
}

type Location struct {
	Street   Street   `json:"street"`
	City     string   `json:"city"`
	State    string   `json:"state"`
	Country  string   `json:"country"`
	Postcode Postcode `json:"postcode"`
	Timezone Timezone `json:"timezone"`
}

type Street struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// Timezone offset is formatted as "+HH:MM" or "-HH:MM"
type Timezone struct {
	Offset      string `json:"offset"`
	Description string `json:"description"`
}

type Login struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Dated is the {date, age} pair the API uses for dob and registered
type Dated struct {
	Date string `json:"date"`
	Age  int    `json:"age"`
}

// Postcode is served as a number for some nationalities and a string for others
type Postcode string

// UnmarshalJSON accepts both JSON strings and numbers
func (p *Postcode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Postcode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*p = Postcode(strconv.FormatInt(i, 10))
		return nil
	}
	*p = Postcode(n.String())
	return nil
}
