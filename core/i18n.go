package core

import (
	"strings"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/ru"
	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
)

// Message keys. Templates use {0}, {1}... placeholders.
const (
	MsgRequired         = "required"
	MsgLength           = "length"
	MsgMinLength        = "minLength"
	MsgMaxLength        = "maxLength"
	MsgBetween          = "between"
	MsgMin              = "min"
	MsgMax              = "max"
	MsgType             = "type"
	MsgFormat           = "format"
	MsgOneOf            = "oneOf"
	MsgNotFound         = "notFound"
	MsgValidationFailed = "validationFailed"
	MsgConflict         = "conflict"
	MsgInternal         = "internal"
	MsgBadRequest       = "badRequest"
	MsgTooLarge         = "tooLarge"
	MsgMethodNotAllowed = "methodNotAllowed"
	MsgUnsupportedMedia = "unsupportedMedia"
	MsgPwdTooSimilar    = "pwdTooSimilar"
	MsgPwdAllNumeric    = "pwdAllNumeric"
	MsgPwdWhitespace    = "pwdWhitespace"
	MsgUnknownSort      = "unknownSort"
	MsgUnknownInclude   = "unknownInclude"

	LabelResource = "Resource"
)

var catalog = map[string]map[string]string{
	"en": {
		MsgRequired:         "{0} is required.",
		MsgLength:           "{0} must be from {1} to {2} symbols.",
		MsgMinLength:        "{0} must be at least {1} symbols.",
		MsgMaxLength:        "{0} must be at most {1} symbols.",
		MsgBetween:          "{0} must be from {1} to {2}.",
		MsgMin:              "{0} must be at least {1}.",
		MsgMax:              "{0} must be at most {1}.",
		MsgType:             "{0} must be {1}.",
		MsgFormat:           "{0} has an invalid format.",
		MsgOneOf:            "{0} must be one of: {1}.",
		MsgNotFound:         "{0} is not found.",
		MsgValidationFailed: "Validation failed.",
		MsgConflict:         "{0} conflicts with an existing record.",
		MsgInternal:         "Internal Server Error",
		MsgBadRequest:       "Malformed request.",
		MsgTooLarge:         "Request entity too large.",
		MsgMethodNotAllowed: "Method not allowed.",
		MsgUnsupportedMedia: "Unsupported media type.",
		MsgPwdTooSimilar:    "Password is too similar to the {0}.",
		MsgPwdAllNumeric:    "Password cannot be entirely numeric.",
		MsgPwdWhitespace:    "Password must not contain whitespace.",
		MsgUnknownSort:      "Cannot sort by {0}.",
		MsgUnknownInclude:   "Cannot include {0}.",

		"type.string": "a string",
		"type.int":    "an integer",
		"type.float":  "a number",
		"type.bool":   "a boolean",
		"type.time":   "an RFC 3339 date",
	},
	"ru": {
		MsgRequired:         "{0}: обязательное поле.",
		MsgLength:           "{0} должно содержать от {1} до {2} символов.",
		MsgMinLength:        "{0} должно содержать не менее {1} символов.",
		MsgMaxLength:        "{0} должно содержать не более {1} символов.",
		MsgBetween:          "{0} должно быть от {1} до {2}.",
		MsgMin:              "{0} должно быть не меньше {1}.",
		MsgMax:              "{0} должно быть не больше {1}.",
		MsgType:             "{0} должно быть {1}.",
		MsgFormat:           "{0} имеет неверный формат.",
		MsgOneOf:            "{0} должно быть одним из: {1}.",
		MsgNotFound:         "{0} не найдено.",
		MsgValidationFailed: "Ошибка валидации.",
		MsgConflict:         "{0} конфликтует с существующей записью.",
		MsgInternal:         "Внутренняя ошибка сервера",
		MsgBadRequest:       "Некорректный запрос.",
		MsgTooLarge:         "Слишком большой запрос.",
		MsgMethodNotAllowed: "Метод не поддерживается.",
		MsgUnsupportedMedia: "Неподдерживаемый тип содержимого.",
		MsgPwdTooSimilar:    "Пароль слишком похож на поле {0}.",
		MsgPwdAllNumeric:    "Пароль не может состоять только из цифр.",
		MsgPwdWhitespace:    "Пароль не должен содержать пробелов.",
		MsgUnknownSort:      "Нельзя сортировать по полю {0}.",
		MsgUnknownInclude:   "Нельзя включить {0}.",

		"type.string": "строкой",
		"type.int":    "целым числом",
		"type.float":  "числом",
		"type.bool":   "логическим значением",
		"type.time":   "датой в формате RFC 3339",

		LabelResource: "Ресурс",
		"Role":        "Роль",
		"Subject":     "Предмет",
		"Class":       "Класс",
		"User":        "Пользователь",
		"Lesson":      "Урок",
		"Mark":        "Оценка",
		"Name":        "Название",
		"Full name":   "Имя",
		"Description": "Описание",
		"Year":        "Год",
		"Email":       "Электронная почта",
		"Password":    "Пароль",
		"Teacher":     "Учитель",
		"Student":     "Ученик",
		"Date":        "Дата",
		"Topic":       "Тема",
		"Value":       "Значение",
		"Comment":     "Комментарий",
		"Offset":      "Смещение",
		"Limit":       "Лимит",
		"Sort":        "Сортировка",
		"Direction":   "Направление",
	},
}

// NewTranslator returns a universal translator for the given locales. The first locale is the fallback.
func NewTranslator(locs ...string) (*ut.UniversalTranslator, error) {
	if len(locs) == 0 {
		locs = []string{"en"}
	}

	supported := make([]locales.Translator, 0, len(locs))
	for _, loc := range locs {
		switch CleanString(loc, true /* lower */) {
		case "en":
			supported = append(supported, en.New())
		case "ru":
			supported = append(supported, ru.New())
		default:
			return nil, errors.Errorf("unsupported locale %q", loc)
		}
	}

	uni := ut.New(supported[0], supported...)
	for _, l := range supported {
		tr, _ := uni.GetTranslator(l.Locale())
		for key, text := range catalog[l.Locale()] {
			if err := tr.Add(key, text, false); err != nil {
				return nil, errors.Wrapf(err, "adding %q translation for %s", key, l.Locale())
			}
		}
	}
	return uni, nil
}

// FindTranslator picks the translator for the first supported locale in prefs,
// e.g. the tags of an Accept-Language header. It falls back to the default locale.
func FindTranslator(uni *ut.UniversalTranslator, prefs ...string) ut.Translator {
	tags := make([]string, 0, len(prefs)*2)
	for _, pref := range prefs {
		tag := CleanString(strings.SplitN(pref, ";", 2)[0], true /* lower */)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if i := strings.IndexAny(tag, "-_"); i > 0 {
			tags = append(tags, tag[:i])
		}
	}
	tr, _ := uni.FindTranslator(tags...)
	return tr
}

// T translates key with params. Unknown keys are returned as is, so plain labels
// without a translation read naturally.
func T(tr ut.Translator, key string, params ...string) string {
	if tr != nil {
		if s, err := tr.T(key, params...); err == nil {
			return s
		}
	}
	if len(params) == 0 {
		return key
	}
	return key + ": " + strings.Join(params, ", ")
}
