package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cradoe/lenda/internal/blacklist"
	"github.com/cradoe/lenda/internal/config"
	"github.com/cradoe/lenda/internal/errHandler"
	"github.com/cradoe/lenda/internal/helper"
	"github.com/cradoe/lenda/internal/repository"
	"github.com/cradoe/lenda/internal/request"
	"github.com/cradoe/lenda/internal/response"
	"github.com/cradoe/lenda/internal/smtp"
	"github.com/cradoe/lenda/internal/validator"

	"github.com/cradoe/gopass"
	"github.com/jmoiron/sqlx"
	"github.com/pascaldekloe/jwt"
)

// WalletProvisioner creates the wallet leg of a registration, inside the
// caller's transaction.
type WalletProvisioner interface {
	CreateWallet(userID int64, tx *sqlx.Tx) (int64, error)
}

type AuthHandler struct {
	DB         repository.Database
	Wallets    WalletProvisioner
	Blacklist  blacklist.Checker
	Mailer     smtp.MailerInterface
	Helper     *helper.HelperRepository
	ErrHandler *errHandler.ErrorRepository
	Config     *config.Config
}

func NewAuthHandler(handler *AuthHandler) *AuthHandler {
	return &AuthHandler{
		DB:         handler.DB,
		Wallets:    handler.Wallets,
		Blacklist:  handler.Blacklist,
		Mailer:     handler.Mailer,
		Helper:     handler.Helper,
		ErrHandler: handler.ErrHandler,
		Config:     handler.Config,
	}
}

// New user registration typically involves:
// Input validations and checking that records have not already existed for the unique fields, such as email.
// We check the karma blacklist before any write; a blacklisted email is rejected outright.
// We then start a database transaction to insert the user record and also create a wallet for the user.
// A failed operation at any point will make the function roll back both inserts,
// ...so a user row is never committed without its wallet.
func (h *AuthHandler) HandleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email       string              `json:"email"`
		Password    string              `json:"password"`
		FirstName   string              `json:"first_name"`
		LastName    string              `json:"last_name"`
		PhoneNumber string              `json:"phone_number"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	// we need to validate the password to make sure it meets the minimum requirements
	// the Validate function returns a slice of errors if the password does not meet the requirements
	_, errs := gopass.Validate(input.Password)

	if errs != nil {
		// return any errors found before we check the other fields
		// It's important that users have a strong password
		h.ErrHandler.FailedValidation(w, r, errs)
		return
	}

	_, found, err := h.DB.User().GetByEmail(input.Email)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")

	// we want to make sure no two users have the same email
	input.Validator.Check(!found, "Email is already in use")

	input.Validator.Check(validator.NotBlank(input.FirstName), "First name is required")
	input.Validator.Check(validator.NotBlank(input.LastName), "Last name is required")

	input.Validator.Check(validator.NotBlank(input.PhoneNumber), "Phone number is required")
	input.Validator.Check(validator.Matches(input.PhoneNumber, validator.RgxPhoneNumber), "Phone number must be in international format")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	// karma blacklist lookup happens strictly before any write
	blacklisted, err := h.Blacklist.Check(r.Context(), input.Email)
	if err != nil {
		message := "we could not verify your email at this time, please try again"
		response.JSONErrorResponse(w, nil, message, http.StatusBadGateway, nil)
		return
	}
	if blacklisted {
		message := "this email address is blacklisted"
		response.JSONErrorResponse(w, nil, message, http.StatusBadRequest, nil)
		return
	}

	hashedPassword, err := gopass.Hash(input.Password)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	// we are using transactions to make sure that if any of the operations fail
	// we can rollback the changes and return an error to the client
	// ...without having incomplete data in the operations
	tx, err := h.DB.BeginTx(r.Context(), nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	defer func() {
		// always make sure it rolls back, if there is an error
		// ...and the transaction is not committed
		if err != nil {
			tx.Rollback()
		}
	}()

	createdUser := &repository.User{
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		HashedPassword: hashedPassword,
	}

	userID, err := h.DB.User().Insert(createdUser, tx)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	// generate a zero-balance wallet for the created user
	_, err = h.Wallets.CreateWallet(userID, tx)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if err = tx.Commit(); err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.DB.AccountLog().Insert(&repository.AccountLog{
			UserID:      userID,
			Entity:      repository.AccountLogUserEntity,
			EntityId:    userID,
			Description: repository.AccountLogUserRegistrationDescription,
		})

		if err != nil {
			log.Printf("Error logging user registration action: %v", err)
			return err
		}

		return nil
	})

	h.Helper.BackgroundTask(r, func() error {
		emailData := h.Helper.NewEmailData()
		emailData["Name"] = createdUser.FirstName + " " + createdUser.LastName

		err := h.Mailer.Send(createdUser.Email, emailData, "welcome.tmpl")
		if err != nil {
			log.Printf("Error sending welcome email: %v", err)
			return err
		}

		return nil
	})

	message := "Account created successfully"

	err = response.JSONCreatedResponse(w, nil, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *AuthHandler) HandleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string              `json:"email"`
		Password  string              `json:"password"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	user, found, err := h.DB.User().GetByEmail(input.Email)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(found, "Incorrect email/password")

	if found {
		passwordMatches, err := gopass.ComparePasswordAndHash(input.Password, user.HashedPassword)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
		input.Validator.Check(passwordMatches, "Incorrect email/password")
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	// check that account is active
	if user.Status != repository.UserAccountActiveStatus {
		message := "Account has been locked. Please contact support"
		response.JSONErrorResponse(w, nil, message, http.StatusForbidden, nil)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.DB.AccountLog().Insert(&repository.AccountLog{
			UserID:      user.ID,
			Entity:      repository.AccountLogUserEntity,
			EntityId:    user.ID,
			Description: repository.AccountLogUserLoginDescription,
		})

		if err != nil {
			log.Printf("Error logging successful login action: %v", err)
			return err
		}

		return nil
	})

	var claims jwt.Claims
	claims.Subject = strconv.FormatInt(user.ID, 10)

	expiry := time.Now().Add(24 * time.Hour)
	claims.Issued = jwt.NewNumericTime(time.Now())
	claims.NotBefore = jwt.NewNumericTime(time.Now())
	claims.Expires = jwt.NewNumericTime(expiry)

	claims.Issuer = h.Config.BaseURL
	claims.Audiences = []string{h.Config.BaseURL}

	jwtBytes, err := claims.HMACSign(jwt.HS256, []byte(h.Config.Jwt.SecretKey))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Login successful"

	data := map[string]any{
		"auth_token":   string(jwtBytes),
		"token_expiry": expiry.Format(time.RFC3339),
	}

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
