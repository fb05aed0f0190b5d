package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/apiutil"
	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/config"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/metrics"
	"github.com/codr1/marketplace/internal/ratelimit"
)

const minPasswordLength = 8

var (
	queries      *dbq.Queries
	appConfig    *config.Config
	loginLimiter *ratelimit.Limiter
	initOnce     sync.Once
)

// InitHandlers wires the auth handlers. Only the first call has an effect.
func InitHandlers(q *dbq.Queries, cfg *config.Config) {
	initOnce.Do(func() {
		queries = q
		appConfig = cfg
		loginLimiter = ratelimit.New(ratelimit.DefaultConfig())
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	User      dbq.User `json:"user"`
}

func (req *registerRequest) validate() apiutil.FieldErrors {
	var fe apiutil.FieldErrors
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Role == "" {
		req.Role = authz.RoleCustomer
	}

	if req.Email == "" {
		fe.Add("email", "is required")
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		fe.Add("email", "must be a valid email address")
	}
	if len(req.Password) < minPasswordLength {
		fe.Add("password", "must be at least "+strconv.Itoa(minPasswordLength)+" characters")
	}
	if req.FullName == "" {
		fe.Add("full_name", "is required")
	}
	if req.Role != authz.RoleCustomer && req.Role != authz.RoleVendor {
		fe.Add("role", "must be customer or vendor")
	}
	return fe
}

// POST /api/v1/auth/register
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if fe := req.validate(); fe.HasErrors() {
		apiutil.WriteFieldErrors(w, fe)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := queries.CreateUser(ctx, dbq.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         req.Role,
	})
	if err != nil {
		if apiutil.IsUniqueViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		logger.Error().Err(err).Msg("Failed to create user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	metrics.IncRegistration(user.Role)
	logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("User registered")
	writeToken(w, r, user, http.StatusCreated)
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ip := ratelimit.GetClientIP(r, appConfig != nil && appConfig.App.TrustProxy)
	if result := loginLimiter.CheckLogin(req.Email, ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded("login", req.Email, ip, result.Reason)
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
		apiutil.WriteError(w, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := queries.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.Error().Err(err).Msg("Failed to load user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	if err != nil || !VerifyPassword(user.PasswordHash, req.Password) {
		if loginLimiter.RecordFailure(req.Email, ip) {
			logger.Warn().Str("identifier", ratelimit.SanitizeIdentifier(req.Email)).Msg("Login locked out")
		}
		apiutil.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	loginLimiter.Reset(req.Email)
	writeToken(w, r, user, http.StatusOK)
}

// GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	authUser, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := queries.GetUser(ctx, authUser.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		logger.Error().Err(err).Int64("user_id", authUser.ID).Msg("Failed to load user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, user); err != nil {
		logger.Error().Err(err).Msg("Failed to write account response")
	}
}

func writeToken(w http.ResponseWriter, r *http.Request, user dbq.User, status int) {
	logger := log.Ctx(r.Context())
	token, expiresAt, err := IssueToken(&authz.AuthUser{ID: user.ID, Role: user.Role})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	if err := apiutil.WriteJSON(w, status, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      user,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write token response")
	}
}
