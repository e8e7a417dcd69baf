package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"organic-grocery/config"
	"organic-grocery/middleware"
	"organic-grocery/models"
	"organic-grocery/utils"
)

// AuthController handles OTP login and session issuance.
type AuthController struct {
	Users        *mongo.Collection
	EmailService *utils.EmailService
	Config       config.AppConfig
}

// NewAuthController creates a new AuthController.
func NewAuthController(client *mongo.Client, emailService *utils.EmailService, cfg config.AppConfig) *AuthController {
	return &AuthController{
		Users:        client.Database(cfg.MongoDB).Collection("users"),
		EmailService: emailService,
		Config:       cfg,
	}
}

type sendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,min=2"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// SendOTP finds or creates the user for the given email, issues a fresh
// code and mails it. The code is persisted before the mail goes out, so a
// delivery failure leaves a still-verifiable code behind.
func (ac *AuthController) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	email := normalizeEmail(req.Email)
	now := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err := ac.Users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	isNew := errors.Is(err, mongo.ErrNoDocuments)
	if err != nil && !isNew {
		utils.RespondServerError(w, err)
		return
	}
	if isNew {
		user = models.NewUser(email, strings.TrimSpace(req.Name), now)
	} else if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}

	code, err := user.IssueCode(ac.Config.OTPLength, ac.Config.OTPTTL, now)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	user.UpdatedAt = now

	if isNew {
		result, err := ac.Users.InsertOne(ctx, user)
		if err != nil {
			utils.RespondServerError(w, err)
			return
		}
		user.ID = result.InsertedID.(primitive.ObjectID)
	} else {
		update := bson.M{"$set": bson.M{
			"name":       user.Name,
			"otp":        user.OTP,
			"updated_at": user.UpdatedAt,
		}}
		if _, err := ac.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
			utils.RespondServerError(w, err)
			return
		}
	}

	if err := ac.EmailService.SendOTPEmail(email, code, user.Name); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to send OTP email")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "OTP sent successfully",
		"email":   email,
	})
}

// VerifyOTP runs the code through the user's OTP state machine and mints a
// session token on success. State changes made by the machine (attempt
// counts, cleared codes, verified flag) are persisted on every path.
func (ac *AuthController) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	email := normalizeEmail(req.Email)
	now := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := ac.Users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	verifyErr := user.VerifyCode(req.OTP, now)

	update := bson.M{"$set": bson.M{
		"otp":         user.OTP,
		"is_verified": user.IsVerified,
		"last_login":  user.LastLogin,
		"updated_at":  now,
	}}
	if _, err := ac.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	switch {
	case errors.Is(verifyErr, models.ErrNoCode), errors.Is(verifyErr, models.ErrCodeExpired):
		utils.RespondError(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	case errors.Is(verifyErr, models.ErrTooManyAttempts):
		utils.RespondError(w, http.StatusBadRequest, "Too many attempts, please request a new OTP")
		return
	case errors.Is(verifyErr, models.ErrInvalidCode):
		utils.RespondError(w, http.StatusBadRequest, "Invalid OTP")
		return
	case verifyErr != nil:
		utils.RespondServerError(w, verifyErr)
		return
	}

	token, err := utils.GenerateJWT(ac.Config.JWTSecret, user.ID.Hex(), user.Role, ac.Config.TokenTTL)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":          user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"role":        user.Role,
			"gender":      user.Gender,
			"dateOfBirth": user.DateOfBirth,
		},
	})
}

// Me returns the authenticated user's profile. OTP material is excluded
// from serialization at the model level.
func (ac *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

// Logout exists for API symmetry; tokens are discarded client-side.
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	utils.RespondMessage(w, "Logged out successfully")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
