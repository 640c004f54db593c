package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/contacts/internal/server/models"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

func (r *credentialsRequest) validate() violations {
	r.Email = strings.TrimSpace(r.Email)
	return checkStruct(r)
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email,max=100"`
}

func (r *resetRequest) validate() violations {
	r.Email = strings.TrimSpace(r.Email)
	return checkStruct(r)
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,maxbytes=72"`
}

func (r *resetPasswordRequest) validate() violations {
	r.Token = strings.TrimSpace(r.Token)
	return checkStruct(r)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type avatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

type userSummary struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	IsActive   bool      `json:"is_active"`
	Avatar     *string   `json:"avatar"`
	CreatedAt  time.Time `json:"created_at"`
	IsVerified bool      `json:"is_verified"`
	Role       string    `json:"role"`
}

func newUserSummary(u *models.User) userSummary {
	return userSummary{
		ID:         u.ID,
		Email:      u.Email,
		IsActive:   u.IsActive,
		Avatar:     u.Avatar,
		CreatedAt:  u.CreatedAt,
		IsVerified: u.IsVerified,
		Role:       u.Role,
	}
}

type contactRequest struct {
	FirstName      string  `json:"first_name" validate:"required,max=50"`
	LastName       string  `json:"last_name" validate:"required,max=50"`
	Email          string  `json:"email" validate:"required,email,max=100"`
	PhoneNumber    string  `json:"phone_number" validate:"required,max=20"`
	Birthday       *string `json:"birthday" validate:"omitnil,datetime=2006-01-02"`
	AdditionalInfo *string `json:"additional_info" validate:"omitnil,max=255"`
}

func (r *contactRequest) toContact() (models.Contact, violations) {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)

	if v := checkStruct(r); !v.empty() {
		return models.Contact{}, v
	}

	c := models.Contact{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		AdditionalInfo: r.AdditionalInfo,
	}
	if r.Birthday != nil {
		c.Birthday = parseDate(*r.Birthday)
	}
	return c, nil
}

// parseDate expects a value that already passed the datetime rule.
func parseDate(s string) *time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

var jsonNull = []byte("null")

// parseContactPatch turns a JSON object into a partial update. An absent
// key leaves the field alone; an explicit null clears the optional fields
// and is rejected for the required ones.
func parseContactPatch(fields map[string]json.RawMessage) (models.ContactUpdate, violations) {
	var (
		u models.ContactUpdate
		v violations
	)

	str := func(name string, raw json.RawMessage) (string, bool) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			v.add(name, "must be a string")
			return "", false
		}
		return s, true
	}

	required := func(name string, raw json.RawMessage, rules string) *string {
		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			v.add(name, "may not be null")
			return nil
		}
		s, ok := str(name, raw)
		if !ok {
			return nil
		}
		s = strings.TrimSpace(s)
		if !v.check(name, s, rules) {
			return nil
		}
		return &s
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := fields[name]
		isNull := bytes.Equal(bytes.TrimSpace(raw), jsonNull)
		switch name {
		case "first_name":
			u.FirstName = required(name, raw, nameRules)
		case "last_name":
			u.LastName = required(name, raw, nameRules)
		case "email":
			u.Email = required(name, raw, emailRules)
		case "phone_number":
			u.PhoneNumber = required(name, raw, phoneRules)
		case "birthday":
			if isNull {
				u.ClearBirthday = true
				continue
			}
			if s, ok := str(name, raw); ok && v.check(name, s, birthdayRules) {
				u.Birthday = parseDate(s)
			}
		case "additional_info":
			if isNull {
				u.ClearAdditionalInfo = true
				continue
			}
			if s, ok := str(name, raw); ok && v.check(name, s, infoRules) {
				u.AdditionalInfo = &s
			}
		default:
			v.add(name, fmt.Sprintf("unknown field %q", name))
		}
	}
	return u, v
}

type contactResponse struct {
	ID             int64   `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    string  `json:"phone_number"`
	Birthday       *string `json:"birthday"`
	AdditionalInfo *string `json:"additional_info"`
}

func newContactResponse(c *models.Contact) contactResponse {
	resp := contactResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		PhoneNumber:    c.PhoneNumber,
		AdditionalInfo: c.AdditionalInfo,
	}
	if c.Birthday != nil {
		b := c.Birthday.Format(dateLayout)
		resp.Birthday = &b
	}
	return resp
}

func newContactList(cs []models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for i := range cs {
		out = append(out, newContactResponse(&cs[i]))
	}
	return out
}

type contactPageResponse struct {
	TotalCount int64             `json:"total_count"`
	Skip       int               `json:"skip"`
	Limit      int               `json:"limit"`
	Contacts   []contactResponse `json:"contacts"`
}

func newContactPage(p *models.ContactPage) contactPageResponse {
	return contactPageResponse{
		TotalCount: p.TotalCount,
		Skip:       p.Skip,
		Limit:      p.Limit,
		Contacts:   newContactList(p.Contacts),
	}
}
