package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"miam_back_end/internal/apperr"
	"miam_back_end/internal/models"
	"miam_back_end/internal/utils"

	"github.com/google/uuid"
)

const (
	SignupTTL         = 10 * time.Minute
	maxSignupAttempts = 5
)

var errBadCredentials = apperr.New(apperr.KindUnauthorized, "Email ou mot de passe incorrect")

type AuthService struct {
	users   UserRepository
	signups SignupStore
	mailer  Mailer
	tasks   Enqueuer
	hasher  *utils.PasswordHasher
	secret  string
	now     func() time.Time
}

// NewAuthService utilise les paramètres argon2 par défaut si hasher est nil
func NewAuthService(users UserRepository, signups SignupStore, mailer Mailer, tasks Enqueuer, hasher *utils.PasswordHasher, jwtSecret string) *AuthService {
	if hasher == nil {
		hasher = utils.NewPasswordHasher(utils.DefaultArgon2Params)
	}
	return &AuthService{users: users, signups: signups, mailer: mailer, tasks: tasks, hasher: hasher, secret: jwtSecret, now: time.Now}
}

type RegisterInput struct {
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8,max=128"`
	Name     string      `json:"name" binding:"required,max=100"`
	Role     models.Role `json:"role" binding:"omitempty,oneof=customer vendor"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register enregistre une inscription en attente et envoie le code de vérification
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperr.New(apperr.KindConflict, "Cet email est déjà utilisé")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash mot de passe: %w", err)
	}
	code, err := otpCode()
	if err != nil {
		return err
	}
	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}

	pending := &models.PendingSignup{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		Code:         code,
	}
	if err := s.signups.Save(ctx, pending, SignupTTL); err != nil {
		return err
	}

	if s.tasks != nil && s.mailer != nil {
		msg := utils.SignupCodeEmail(email, pending.Name, code)
		if !s.tasks.Enqueue("email:signup", func(ctx context.Context) error { return s.mailer.Send(ctx, msg) }) {
			log.Printf("⚠️ File pleine, code de vérification non envoyé à %s", email)
		}
	}
	log.Printf("✅ Inscription en attente pour %s", email)
	return nil
}

// Verify crée le compte si le code OTP est correct
func (s *AuthService) Verify(ctx context.Context, email, code string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	pending, err := s.signups.Get(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Validation("Code invalide ou expiré")
	}
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		pending.Attempts++
		if pending.Attempts >= maxSignupAttempts {
			_ = s.signups.Delete(ctx, email)
			return nil, apperr.Validation("Trop de tentatives, recommencez l'inscription")
		}
		if err := s.signups.Save(ctx, pending, SignupTTL); err != nil {
			return nil, err
		}
		return nil, apperr.Validation("Code invalide ou expiré")
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Name:      pending.Name,
		Email:     pending.Email,
		Password:  pending.PasswordHash,
		Role:      pending.Role,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.New(apperr.KindConflict, "Cet email est déjà utilisé")
		}
		return nil, err
	}
	if err := s.signups.Delete(ctx, email); err != nil {
		log.Printf("⚠️ Inscription en attente non supprimée pour %s: %v", email, err)
	}

	log.Printf("✅ Compte créé: %s (%s)", user.Email, user.Role)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.Password)
	if err != nil || !ok {
		return nil, errBadCredentials
	}
	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateJWT(*user, s.secret)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func otpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
