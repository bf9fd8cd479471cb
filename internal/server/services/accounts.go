// Package services contains server-side business logic shared by the web
// surface, the gRPC API and the remindctl CLI.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/cryptox"
	"github.com/dmitrijs2005/mailreminder/internal/dbx"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

var bcryptCost = bcrypt.DefaultCost

// RegisterInput is the raw registration form.
type RegisterInput struct {
	Name          string
	Email         string
	MailPassword  string
	LoginPassword string
}

func (in RegisterInput) validate() error {
	switch {
	case in.Email == "" || in.MailPassword == "" || in.LoginPassword == "":
		return common.NewValidationError(common.ReasonMissingField, "All fields required.")
	case !IsValidEmail(in.Email):
		return common.NewValidationError(common.ReasonMalformedAddress, "Invalid email.")
	}
	return nil
}

// AccountService registers users and checks their login credentials.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vault       *cryptox.Vault
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, vault *cryptox.Vault, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		vault:       vault,
		logger:      logger.With("module", "accounts"),
	}
}

// Register creates a user. The login password is stored as a bcrypt hash and
// the mail password as vault ciphertext; neither is kept in plaintext.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.LoginPassword), bcryptCost)
	if err != nil {
		s.logger.Error(ctx, "hashing login password", "error", err)
		return nil, common.ErrorInternal
	}

	cipher, err := s.vault.Encrypt(in.MailPassword)
	if err != nil {
		s.logger.Error(ctx, "encrypting mail password", "error", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Name:               in.Name,
		Email:              in.Email,
		LoginPasswordHash:  string(hash),
		MailPasswordCipher: cipher,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, in.Email)
		if err == nil {
			return common.ErrorDuplicateEmail
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		user, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorDuplicateEmail) {
			return nil, common.ErrorDuplicateEmail
		}
		s.logger.Error(ctx, "registering user", "email", in.Email, "error", err)
		return nil, common.ErrorStoreUnavailable
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// VerifyLogin returns the user when password matches. Unknown emails yield
// common.ErrorNotFound and wrong passwords common.ErrorBadCredentials.
func (s *AccountService) VerifyLogin(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.LoginPasswordHash), []byte(password)); err != nil {
		return nil, common.ErrorBadCredentials
	}

	return user, nil
}

func (s *AccountService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	return s.lookupResult(ctx, user, err)
}

func (s *AccountService) FindByID(ctx context.Context, id string) (*models.User, error) {
	if !isUUID(id) {
		return nil, common.ErrorNotFound
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	return s.lookupResult(ctx, user, err)
}

func (s *AccountService) lookupResult(ctx context.Context, user *models.User, err error) (*models.User, error) {
	if err == nil {
		return user, nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorNotFound
	}
	s.logger.Error(ctx, "loading user", "error", err)
	return nil, common.ErrorStoreUnavailable
}
