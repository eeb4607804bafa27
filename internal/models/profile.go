package models

import "time"

// UserProfile is the access record keyed by the identity id. Deleting it is
// how access gets revoked.
type UserProfile struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Role        string    `gorm:"size:32;not null;index" json:"role"`
	DisplayName string    `gorm:"size:255;not null" json:"display_name"`
	Email       string    `gorm:"size:255" json:"email"`
	ClassName   string    `gorm:"size:64" json:"class_name"`
	Section     string    `gorm:"size:16" json:"section"`
	Subject     string    `gorm:"size:128" json:"subject"`
	RollNumber  string    `gorm:"size:64" json:"roll_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is the role-tagged view of a UserProfile. The concrete types are
// AdminProfile, TeacherProfile, DataEntryProfile and StudentProfile.
type Profile interface {
	Base() ProfileBase
	Role() Role
	sealed()
}

// ProfileBase carries the fields every role shares.
type ProfileBase struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

type AdminProfile struct {
	ProfileBase
}

type TeacherProfile struct {
	ProfileBase
	ClassName string `json:"class_name"`
	Section   string `json:"section"`
	Subject   string `json:"subject"`
}

type DataEntryProfile struct {
	ProfileBase
}

type StudentProfile struct {
	ProfileBase
	RollNumber string `json:"roll_number"`
	ClassName  string `json:"class_name"`
	Section    string `json:"section"`
}

func (p AdminProfile) Base() ProfileBase     { return p.ProfileBase }
func (p TeacherProfile) Base() ProfileBase   { return p.ProfileBase }
func (p DataEntryProfile) Base() ProfileBase { return p.ProfileBase }
func (p StudentProfile) Base() ProfileBase   { return p.ProfileBase }

func (AdminProfile) Role() Role     { return RoleAdmin }
func (TeacherProfile) Role() Role   { return RoleTeacher }
func (DataEntryProfile) Role() Role { return RoleDataEntry }
func (StudentProfile) Role() Role   { return RoleStudent }

func (AdminProfile) sealed()     {}
func (TeacherProfile) sealed()   {}
func (DataEntryProfile) sealed() {}
func (StudentProfile) sealed()   {}

// ToProfile converts the stored record into its tagged variant. A record
// whose role cannot be resolved yields ErrUnknownRole.
func (u UserProfile) ToProfile() (Profile, error) {
	role, err := ParseRole(u.Role)
	if err != nil {
		return nil, err
	}

	base := ProfileBase{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
	return VisitRole[Profile](role, profileBuilder{record: u, base: base})
}

type profileBuilder struct {
	record UserProfile
	base   ProfileBase
}

func (b profileBuilder) Admin() Profile { return AdminProfile{ProfileBase: b.base} }

func (b profileBuilder) Teacher() Profile {
	return TeacherProfile{
		ProfileBase: b.base,
		ClassName:   b.record.ClassName,
		Section:     b.record.Section,
		Subject:     b.record.Subject,
	}
}

func (b profileBuilder) DataEntry() Profile { return DataEntryProfile{ProfileBase: b.base} }

func (b profileBuilder) Student() Profile {
	return StudentProfile{
		ProfileBase: b.base,
		RollNumber:  b.record.RollNumber,
		ClassName:   b.record.ClassName,
		Section:     b.record.Section,
	}
}
