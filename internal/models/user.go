package models

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the full user document stored in MongoDB. Notifications live
// embedded on the user so the whole list can be read and written in one pass.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Handle      string             `bson:"handle" json:"handle"` // unique, lowercase, immutable after signup
	DisplayName string             `bson:"display_name" json:"display_name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password" json:"-"`
	Bio         string             `bson:"bio" json:"bio"`
	Contacts    Contacts           `bson:"contacts" json:"contacts"`

	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	Following []primitive.ObjectID `bson:"following" json:"following"`

	Notifications []NotificationBucket `bson:"notifications" json:"-"`
	Bookmarks     []primitive.ObjectID `bson:"bookmarks" json:"bookmarks"`

	ImageContent []byte `bson:"image_content,omitempty" json:"-"`
	ImageType    string `bson:"image_type,omitempty" json:"-"`

	Preferences Preferences `bson:"preferences" json:"preferences"`

	FirebaseUID string    `bson:"firebase_uid,omitempty" json:"-"`
	Verified    bool      `bson:"verified" json:"verified"`
	OTP         string    `bson:"otp,omitempty" json:"-"`
	OTPExpires  time.Time `bson:"otp_expires,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Contacts holds the optional profile links shown on a user's page.
type Contacts struct {
	Linkedin string `bson:"linkedin" json:"linkedin"`
	Github   string `bson:"github" json:"github"`
	Website  string `bson:"website" json:"website"`
	Twitter  string `bson:"twitter" json:"twitter"`
	Email    string `bson:"email" json:"email"`
}

// Preferences holds per-user UI settings.
type Preferences struct {
	Theme string `bson:"theme" json:"theme"`
}

// ImageDataURL returns the stored avatar as a data URL, or "" when unset.
func (u *User) ImageDataURL() string {
	if len(u.ImageContent) == 0 || u.ImageType == "" {
		return ""
	}
	return "data:" + u.ImageType + ";base64," + base64.StdEncoding.EncodeToString(u.ImageContent)
}

// UserCompact is the trimmed projection embedded in listings and
// notification sender displays.
type UserCompact struct {
	ID          primitive.ObjectID `json:"id"`
	Handle      string             `json:"handle"`
	DisplayName string             `json:"display_name"`
	Image       string             `json:"image,omitempty"`
}

// ToCompact projects the user for embedding in other payloads.
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		Image:       u.ImageDataURL(),
	}
}

type SignupRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=4"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// UpdateSettingsRequest carries the mutable profile fields. The handle is
// deliberately absent: mentions resolve against it, so it never changes.
type UpdateSettingsRequest struct {
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,min=2,max=50"`
	Bio         string `json:"bio,omitempty" validate:"omitempty,max=300"`
	Theme       string `json:"theme,omitempty" validate:"omitempty,oneof=blue purple green dark"`
	Linkedin    string `json:"linkedin,omitempty"`
	Github      string `json:"github,omitempty"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims.
type JwtCustomClaims struct {
	UserID string `json:"user_id"` // hex ObjectID
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
