package server

import (
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"bloodlink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	if s.cognito == nil {
		s.writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
		return
	}

	var form types.RegisterForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	givenName := strings.TrimSpace(form.GivenName)
	familyName := strings.TrimSpace(form.FamilyName)
	email := strings.TrimSpace(form.Email)

	fieldErrors := validateRegisterInput(givenName, familyName, email, form.Password, form.ConfirmPassword)
	if len(fieldErrors) > 0 {
		s.logger.WithField("field_errors", fieldErrors).Info("validation errors during registration")
		s.writeFieldErrors(w, fieldErrors)
		return
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(s.config.CognitoClientID),
		Username: aws.String(email), // use email as username
		Password: aws.String(form.Password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("given_name"), Value: aws.String(givenName)},
			{Name: aws.String("family_name"), Value: aws.String(familyName)},
		},
	}

	resp, err := s.cognito.SignUp(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).Error("failed to signup user")

		msg, fieldErrs := s.mapCognitoSignUpError(err)
		s.writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: msg, FieldErrors: fieldErrs})
		return
	}

	if s.users != nil && resp.UserSub != nil {
		err = s.users.UpsertIdentity(r.Context(), aws.ToString(resp.UserSub), email, givenName, familyName)
		if err != nil {
			s.logger.WithError(err).Error("failed to store registered user")
			s.internalServerError(w)
			return
		}
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"email":  email,
		"status": "confirmation_required",
	})
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	if s.cognito == nil {
		s.writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
		return
	}

	var form types.ConfirmRegisterForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(s.config.CognitoClientID),
		Username:         aws.String(strings.TrimSpace(form.Email)),
		ConfirmationCode: aws.String(strings.TrimSpace(form.Code)),
	}

	_, err := s.cognito.ConfirmSignUp(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm user signup")

		var codeMismatch *ctypes.CodeMismatchException
		if errors.As(err, &codeMismatch) {
			s.writeError(w, http.StatusBadRequest, "Invalid confirmation code. Please check the code and try again.")
			return
		}

		s.writeError(w, http.StatusBadRequest, "Unable to confirm account. Please try again.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var (
	hasUpperReg  = regexp.MustCompile(`[A-Z]`)
	hasLowerReg  = regexp.MustCompile(`[a-z]`)
	hasDigitReg  = regexp.MustCompile(`[0-9]`)
	hasSymbolReg = regexp.MustCompile(`[^A-Za-z0-9]`)
)

func validateRegisterInput(givenName, familyName, email, password, confirmPassword string) map[string]string {
	errs := map[string]string{}

	if givenName == "" {
		errs["given_name"] = "First name is required."
	}

	if familyName == "" {
		errs["family_name"] = "Last name is required."
	}

	if email == "" {
		errs["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "Enter a valid email address."
	}

	if password != confirmPassword {
		errs["confirm_password"] = "Passwords do not match."
	}

	hasUpper := hasUpperReg.MatchString(password)
	hasLower := hasLowerReg.MatchString(password)
	hasDigit := hasDigitReg.MatchString(password)
	hasSymbol := hasSymbolReg.MatchString(password)

	if len(password) < 12 || !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		errs["password"] = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."
	}

	return errs
}

func (s *Service) mapCognitoSignUpError(err error) (string, map[string]string) {
	fieldErrs := map[string]string{}

	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		fieldErrs["password"] = "Password must include uppercase, lowercase, number, and symbol (min 12)."
		return "Please fix the highlighted fields.", fieldErrs
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		fieldErrs["email"] = "An account with this email already exists."
		return "Try logging in instead.", fieldErrs
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return "Unable to create account right now. Please try again.", fieldErrs
}
