package handlers

import (
	"reflect"
	"strings"

	"challenge-arena/models"
	"challenge-arena/services"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "request validation failed"
}

var (
	challengeTypeTag  = "challenge_type"
	challengeTypeText = "{0} must be one of head_to_head, multiplayer, tournament, leaderboard"

	participationStatusTag  = "participation_status"
	participationStatusText = "{0} must be one of invited, accepted, in_progress, completed, forfeit, disqualified"

	requiredTag  = "required"
	requiredText = "{0} is required"
)

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(challengeTypeTag, func(fl validator.FieldLevel) bool {
		return models.ChallengeType(fl.Field().String()).Valid()
	})
	registerTranslation(validate, translator, challengeTypeTag, challengeTypeText, false)

	_ = validate.RegisterValidation(participationStatusTag, func(fl validator.FieldLevel) bool {
		return models.ParticipationStatus(fl.Field().String()).Valid()
	})
	registerTranslation(validate, translator, participationStatusTag, participationStatusText, false)

	registerTranslation(validate, translator, requiredTag, requiredText, true)

	return &Validator{validate: validate, translator: translator}
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and converts failures into a *ValidationError.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return &ValidationError{Fields: fields}
}

// bind parses an optional JSON body into dst and validates it.
func (v *Validator) bind(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return &services.BadRequestError{Msg: "invalid JSON body: " + err.Error()}
		}
	}
	return v.Struct(dst)
}
