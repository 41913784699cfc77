package service

import "errors"

// Ошибки аутентификации и доступа.
var (
	ErrInvalidToken = errors.New("недействительный токен")
	ErrKeyNotFound  = errors.New("ключ доступа не найден")
	ErrAccessDenied = errors.New("доступ запрещён")

	// Внутренняя ошибка общих проверок доступа: аккаунт исчез между
	// проверкой токена и операцией. На публичной границе всегда
	// превращается в ErrInvalidToken и наружу не отдаётся.
	ErrAccountNotFound = errors.New("аккаунт не найден")
)

// Ошибки «не найдено».
var (
	ErrTrainingNotFound = errors.New("стажировка не найдена")
	ErrLevelNotFound    = errors.New("уровень не найден")
	ErrRoleNotFound     = errors.New("роль не найдена")
)

// Конфликты состояния: операция отклонена, данные не изменены.
var (
	ErrTrainingIsActive           = errors.New("стажировка уже запущена")
	ErrTrainingIsNotActive        = errors.New("стажировка не запущена")
	ErrTrainingHasStudents        = errors.New("у стажировки есть стажёры")
	ErrTrainingAlreadyInThisState = errors.New("стажировка уже в этом состоянии")
	ErrTrainingIsEmpty            = errors.New("в стажировке нет ни одного уровня")
	ErrLevelAnswerAlreadyExists   = errors.New("ответ на этот уровень уже сохранён")
	ErrRoleAlreadyExists          = errors.New("роль с таким названием уже существует")
)

// Ошибка валидации входных данных: отклоняется до обращения к базе.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return "поле " + e.Field + ": " + e.Reason
}

func newValidationError(field, reason string) ValidationError {
	return ValidationError{Field: field, Reason: reason}
}
