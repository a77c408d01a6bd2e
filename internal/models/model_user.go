package models

import "time"

// User is the billable owner entity. Only the columns the billing flows read or
// write are mapped; applications may keep more columns in the same table.
type User struct {
	ID       string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name     string `gorm:"column:name;type:varchar(255)" json:"name"`
	Email    string `gorm:"column:email;type:varchar(255);index" json:"email"`
	Company  string `gorm:"column:company;type:varchar(255)" json:"company"`
	Phone    string `gorm:"column:phone;type:varchar(64)" json:"phone"`
	Language string `gorm:"column:language;type:varchar(16)" json:"language"`
	Country  string `gorm:"column:country;type:varchar(16)" json:"country"`
	// FastspringID is the remote account id, nil until the customer is created.
	FastspringID *string   `gorm:"column:fastspring_id;type:varchar(128);uniqueIndex" json:"fastspring_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) GetID() string       { return u.ID }
func (u *User) GetName() string     { return u.Name }
func (u *User) GetEmail() string    { return u.Email }
func (u *User) GetCompany() string  { return u.Company }
func (u *User) GetPhone() string    { return u.Phone }
func (u *User) GetLanguage() string { return u.Language }
func (u *User) GetCountry() string  { return u.Country }

func (u *User) GetFastspringID() string {
	if u == nil || u.FastspringID == nil {
		return ""
	}
	return *u.FastspringID
}

func (u *User) SetFastspringID(id string) {
	u.FastspringID = &id
}
