package handlers

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/repositories"
	"github.com/ideate-app/backend/pkg/mailer"
)

const otpTTL = 10 * time.Minute

var handleStrip = regexp.MustCompile(`[^a-z0-9_]`)

// AuthHandler handles signup, OTP verification and login
type AuthHandler struct {
	userRepository repositories.UserRepository
	mailer         *mailer.Mailer
	firebaseAuth   *auth.Client
	jwtSecret      string
	log            logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuthClient may be nil
// when provider login is not configured.
func NewAuthHandler(userRepo repositories.UserRepository, m *mailer.Mailer, firebaseAuthClient *auth.Client, jwtSecret string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		mailer:         m,
		firebaseAuth:   firebaseAuthClient,
		jwtSecret:      jwtSecret,
		log:            log,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/verify-otp", h.VerifyOTP)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup creates an unverified account and emails a verification code. A
// repeat signup on an unverified account refreshes the code instead of
// failing.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	otp := generateOTP()

	existing, err := h.userRepository.GetUserByEmail(ctx, req.Email)
	if err == nil {
		if existing.Verified {
			return echo.NewHTTPError(http.StatusConflict, "Email already registered")
		}
		// Unfinished signup: refresh the password and code, resend.
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
		}
		if err := h.userRepository.UpdatePassword(ctx, existing.ID, string(hashed)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := h.userRepository.SetOTP(ctx, existing.ID, otp, time.Now().Add(otpTTL)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.sendOTP(req.Email, otp)
		return c.JSON(http.StatusOK, echo.Map{"verification_required": true, "email": req.Email})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	handle, err := h.uniqueHandle(ctx, req.DisplayName)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user := &models.User{
		Handle:      handle,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    string(hashed),
		Verified:    false,
		OTP:         otp,
		OTPExpires:  time.Now().Add(otpTTL),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.sendOTP(req.Email, otp)
	return c.JSON(http.StatusCreated, echo.Map{"verification_required": true, "email": req.Email, "handle": handle})
}

// VerifyOTP checks the emailed code and, on success, verifies the account
// and signs the user in.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired OTP")
	}
	if user.OTP == "" || user.OTP != req.OTP || time.Now().After(user.OTPExpires) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired OTP")
	}

	if err := h.userRepository.MarkVerified(ctx, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user.ToCompact()})
}

// Login authenticates with email and password. Unverified accounts get a
// fresh code instead of a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	if !user.Verified {
		otp := generateOTP()
		if err := h.userRepository.SetOTP(ctx, user.ID, otp, time.Now().Add(otpTTL)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.sendOTP(user.Email, otp)
		return c.JSON(http.StatusForbidden, echo.Map{"verification_required": true, "email": user.Email})
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user.ToCompact()})
}

// FirebaseLogin exchanges a Firebase ID token for a local session, creating
// the account on first sight. Provider users skip the OTP flow.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req models.FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, token.UID)
	if err != nil {
		email, _ := token.Claims["email"].(string)
		name, _ := token.Claims["name"].(string)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		handle, handleErr := h.uniqueHandle(ctx, name)
		if handleErr != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, handleErr.Error())
		}
		user = &models.User{
			Handle:      handle,
			DisplayName: name,
			Email:       email,
			FirebaseUID: token.UID,
			Verified:    true,
		}
		if err := h.userRepository.CreateUser(ctx, user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	jwtToken, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": jwtToken, "user": user.ToCompact()})
}

func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

func (h *AuthHandler) sendOTP(email, otp string) {
	if err := h.mailer.SendOTP(email, otp); err != nil {
		h.log.WithError(err).WithField("email", email).Warn("verification email not sent")
	}
}

// uniqueHandle derives the immutable mention handle from the display name,
// suffixing on collision. Mentions resolve against this for the lifetime of
// the account.
func (h *AuthHandler) uniqueHandle(ctx context.Context, displayName string) (string, error) {
	base := handleStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(displayName)), "")
	if base == "" {
		base = "user"
	}
	for i := 0; i < 100; i++ {
		candidate := base
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}
		if _, err := h.userRepository.GetUserByHandle(ctx, candidate); err != nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not derive a unique handle for %q", displayName)
}

func generateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		// crypto/rand failing means something far worse than a weak OTP.
		return "0000"
	}
	return strconv.FormatInt(n.Int64()+1000, 10)
}
