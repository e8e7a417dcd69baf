package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// OTP verification errors. Controllers map these onto HTTP statuses.
var (
	ErrNoCode          = errors.New("no pending code for user")
	ErrCodeExpired     = errors.New("code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrInvalidCode     = errors.New("invalid code")
)

const (
	// MaxOTPAttempts is the number of verification attempts allowed per
	// issued code. The 5th wrong attempt exhausts the code.
	MaxOTPAttempts = 5

	// otpHashCost is deliberately below bcrypt.DefaultCost: codes are
	// 6 digits and live for minutes, so a heavy hash only adds latency
	// on the verify path.
	otpHashCost = 6
)

// OTP is the one-time-passcode sub-document on a user. Only a bcrypt hash
// of the code is ever stored. The whole struct is excluded from JSON so
// code material can never leak into an API response.
type OTP struct {
	CodeHash  string    `bson:"code_hash,omitempty" json:"-"`
	ExpiresAt time.Time `bson:"expires_at,omitempty" json:"-"`
	Attempts  int       `bson:"attempts,omitempty" json:"-"`
}

// Coordinates is a geographic point on a delivery address.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Address is a delivery address embedded in the user document. Keeping
// addresses inside the user record means every address mutation is a single
// document write, so the one-default-per-user invariant cannot be broken by
// concurrent requests.
type Address struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Street      string             `bson:"street" json:"street"`
	City        string             `bson:"city" json:"city"`
	State       string             `bson:"state" json:"state"`
	PostalCode  string             `bson:"postal_code" json:"postalCode"`
	Country     string             `bson:"country" json:"country"`
	Coordinates Coordinates        `bson:"coordinates" json:"coordinates"`
	IsDefault   bool               `bson:"is_default" json:"isDefault"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// User represents a customer or admin account.
type User struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Email       string               `bson:"email" json:"email"`
	Name        string               `bson:"name" json:"name"`
	Gender      string               `bson:"gender,omitempty" json:"gender,omitempty"` // "male", "female" or "other"
	DateOfBirth *time.Time           `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	IsVerified  bool                 `bson:"is_verified" json:"isVerified"`
	IsActive    bool                 `bson:"is_active" json:"isActive"`
	Role        string               `bson:"role" json:"role"` // "user" or "admin"
	LastLogin   time.Time            `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	OTP         OTP                  `bson:"otp,omitempty" json:"-"`
	Addresses   []Address            `bson:"addresses" json:"addresses"`
	Favorites   []primitive.ObjectID `bson:"favorites" json:"favorites"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
}

// NewUser returns an unverified user account for the given email.
func NewUser(email, name string, now time.Time) User {
	if name == "" {
		name = "User"
	}
	return User{
		Email:     email,
		Name:      name,
		IsActive:  true,
		Role:      "user",
		Addresses: []Address{},
		Favorites: []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == "admin" }

// IssueCode generates a fresh numeric code of the given length, stores its
// bcrypt hash with the expiry, resets the attempt counter and returns the
// plaintext code for delivery. Any still-pending code is overwritten.
func (u *User) IssueCode(length int, ttl time.Duration, now time.Time) (string, error) {
	code, err := generateCode(length)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), otpHashCost)
	if err != nil {
		return "", err
	}
	u.OTP = OTP{
		CodeHash:  string(hash),
		ExpiresAt: now.Add(ttl),
		Attempts:  0,
	}
	return code, nil
}

// VerifyCode runs the OTP state machine against the supplied code.
//
// Expired and exhausted codes are cleared and rejected before any hash
// comparison happens. A wrong code keeps the incremented attempt counter,
// so the 5th mismatch exhausts the code. On success the code material is
// cleared, the user is marked verified and last login is stamped; a code
// can never be accepted twice.
func (u *User) VerifyCode(code string, now time.Time) error {
	if u.OTP.CodeHash == "" || u.OTP.ExpiresAt.IsZero() {
		return ErrNoCode
	}
	if now.After(u.OTP.ExpiresAt) {
		u.ClearCode()
		return ErrCodeExpired
	}
	if u.OTP.Attempts >= MaxOTPAttempts {
		u.ClearCode()
		return ErrTooManyAttempts
	}
	u.OTP.Attempts++
	if bcrypt.CompareHashAndPassword([]byte(u.OTP.CodeHash), []byte(code)) != nil {
		return ErrInvalidCode
	}
	u.ClearCode()
	u.IsVerified = true
	u.LastLogin = now
	return nil
}

// ClearCode resets the OTP sub-document to its empty state.
func (u *User) ClearCode() { u.OTP = OTP{} }

func generateCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// FindAddress returns a pointer to the address with the given id, or nil.
func (u *User) FindAddress(id primitive.ObjectID) *Address {
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			return &u.Addresses[i]
		}
	}
	return nil
}

// DefaultAddress returns the user's default address, or nil when the user
// has no addresses.
func (u *User) DefaultAddress() *Address {
	for i := range u.Addresses {
		if u.Addresses[i].IsDefault {
			return &u.Addresses[i]
		}
	}
	if len(u.Addresses) > 0 {
		return &u.Addresses[0]
	}
	return nil
}

// AddAddress appends a new address. The first address is always the
// default; an explicit default request demotes every other address.
func (u *User) AddAddress(addr Address, now time.Time) Address {
	addr.ID = primitive.NewObjectID()
	addr.CreatedAt = now
	addr.UpdatedAt = now
	if len(u.Addresses) == 0 {
		addr.IsDefault = true
	}
	if addr.IsDefault {
		u.unsetDefaults()
	}
	u.Addresses = append(u.Addresses, addr)
	return addr
}

// SetDefaultAddress makes the given address the sole default. Returns false
// when the user owns no such address.
func (u *User) SetDefaultAddress(id primitive.ObjectID) bool {
	target := u.FindAddress(id)
	if target == nil {
		return false
	}
	u.unsetDefaults()
	target.IsDefault = true
	return true
}

// RemoveAddress deletes the address with the given id. If it was the
// default, the most recently created remaining address is promoted so the
// one-default invariant keeps holding. Returns false when not found.
func (u *User) RemoveAddress(id primitive.ObjectID) bool {
	idx := -1
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	wasDefault := u.Addresses[idx].IsDefault
	u.Addresses = append(u.Addresses[:idx], u.Addresses[idx+1:]...)
	if wasDefault && len(u.Addresses) > 0 {
		newest := 0
		for i := range u.Addresses {
			if u.Addresses[i].CreatedAt.After(u.Addresses[newest].CreatedAt) {
				newest = i
			}
		}
		u.unsetDefaults()
		u.Addresses[newest].IsDefault = true
	}
	return true
}

// HasFavorite reports whether the product is already in the favorites list.
func (u *User) HasFavorite(productID primitive.ObjectID) bool {
	for _, id := range u.Favorites {
		if id == productID {
			return true
		}
	}
	return false
}

func (u *User) unsetDefaults() {
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = false
	}
}
