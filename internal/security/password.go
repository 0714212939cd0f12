package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DummyHash валидный bcrypt-хэш, который сравнивается с паролем, когда
// пользователь не найден. Логин выполняет полный цикл проверки в любом
// случае, чтобы по времени ответа нельзя было перечислять пользователей.
const DummyHash = "$2a$10$XWeWKRSy1hLbraVJr3NbjOhggEt2kdUf7UG/BLXRHpazyc1wBO/XS"

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("не удалось создать хэш пароля: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(password string, passwordHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}
