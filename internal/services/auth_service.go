package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

// AuthService owns the two credential surfaces: admin console sessions
// (email/password login issuing a JWT) and openapi API keys resolved to the
// owning admin. API-key lookups are cached in Redis.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *validator.Validate
}

// RegisterRequest represents the admin registration payload
// @Description Admin registration request structure
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"admin@example.com"` // Admin email address
	Password string `json:"password" validate:"required,min=6" example:"password123"`    // Admin password
	Name     string `json:"name" validate:"required,min=2" example:"Jane Admin"`         // Admin display name
}

// LoginRequest represents the admin login payload
// @Description Admin login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"admin@example.com"` // Admin email
	Password string `json:"password" validate:"required,min=6" example:"password123"`    // Admin password
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token   string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	AdminID string `json:"adminId"`                                                 // Admin identifier
	APIKey  string `json:"apiKey,omitempty"`                                        // Issued API key (registration only)
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: validator.New(),
	}
}

// ResolveAPIKey returns the admin owning an API key, failing with
// ErrInvalidAPIKey when the key was never issued.
func (s *AuthService) ResolveAPIKey(ctx context.Context, apiKey uuid.UUID) (uuid.UUID, error) {
	cacheKey := fmt.Sprintf("apikey:%s", apiKey)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			if adminID, err := uuid.Parse(cached); err == nil {
				return adminID, nil
			}
		}
	}

	var adminID uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT admin_id FROM api_keys WHERE key = $1`, apiKey).Scan(&adminID)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrInvalidAPIKey
	}
	if err != nil {
		return uuid.Nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, adminID.String(), time.Hour).Err(); err != nil {
			log.Printf("[AUTH] Failed to cache api key: %v", err)
		}
	}
	return adminID, nil
}

// ValidateBankAuthority fails with ErrUnauthorized unless the bank owning
// the target account belongs to the admin behind the API key. Every
// balance-mutating openapi operation calls this before touching state.
func (s *AuthService) ValidateBankAuthority(ctx context.Context, apiKey, bankID uuid.UUID) error {
	adminID, err := s.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return err
	}

	var ownerID uuid.UUID
	err = s.db.QueryRowContext(ctx, `SELECT admin_id FROM banks WHERE id = $1`, bankID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return ErrBankNotFound
	}
	if err != nil {
		return err
	}

	if ownerID != adminID {
		return ErrUnauthorized
	}
	return nil
}

// AdminBankIDs lists the banks owned by the admin behind an API key. An
// empty slice means the caller can see no transactions at all.
func (s *AuthService) AdminBankIDs(ctx context.Context, apiKey uuid.UUID) ([]uuid.UUID, error) {
	adminID, err := s.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM banks WHERE admin_id = $1`, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bankIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		bankIDs = append(bankIDs, id)
	}
	return bankIDs, rows.Err()
}

// Register handles admin registration
// @Summary Register a new admin
// @Description Register an admin and issue their first API key
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 409 {string} string "Email already exists"
// @Failure 500 {string} string "Internal server error"
// @Router /admin/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req RegisterRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	adminID := uuid.New()
	apiKey := uuid.New()

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[AUTH] Transaction start failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create admin", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO admins (id, email, password, name) VALUES ($1, $2, $3, $4)`,
		adminID, strings.ToLower(req.Email), hashedPassword, req.Name)
	if err != nil {
		log.Printf("[AUTH] Admin creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
		return
	}

	_, err = tx.Exec(`INSERT INTO api_keys (key, admin_id) VALUES ($1, $2)`, apiKey, adminID)
	if err != nil {
		log.Printf("[AUTH] API key issuance failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to issue API key", http.StatusInternalServerError, nil)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[AUTH] Transaction commit failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create admin", http.StatusInternalServerError, nil)
		return
	}

	token, err := generateJWT(adminID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for admin %s: %v", adminID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Registration successful for admin %s", adminID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, AdminID: adminID.String(), APIKey: apiKey.String()})
}

// Login handles admin authentication
// @Summary Login admin
// @Description Authenticate admin with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {string} string "Invalid credentials"
// @Router /admin/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LoginRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var adminID uuid.UUID
	var hashedPassword string
	err := s.db.QueryRow(`SELECT id, password FROM admins WHERE email = $1`,
		strings.ToLower(req.Email)).Scan(&adminID, &hashedPassword)
	if err != nil {
		log.Printf("[AUTH] Admin not found for email: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for admin: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(adminID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for admin %s: %v", adminID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for admin %s", adminID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, AdminID: adminID.String()})
}

// Logout handles admin logout
// @Summary Logout admin
// @Description Logout admin and blacklist the presented token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /admin/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// IssueAPIKey mints an additional API key for the authenticated admin
// @Summary Issue API key
// @Description Issue a new API key for the authenticated admin
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Issued key"
// @Failure 401 {string} string "Unauthorized"
// @Router /admin/api-keys [post]
func (s *AuthService) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value("adminID").(uuid.UUID)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	apiKey := uuid.New()
	if _, err := s.db.Exec(`INSERT INTO api_keys (key, admin_id) VALUES ($1, $2)`, apiKey, adminID); err != nil {
		log.Printf("[AUTH] API key issuance failed for admin %s: %v", adminID, err)
		SendErrorResponse(w, "Failed to issue API key", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"apiKey": apiKey.String()})
}

func generateJWT(adminID uuid.UUID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"admin_id": adminID.String(),
		"exp":      time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
