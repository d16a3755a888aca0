package psswd

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt хэширует пароли алгоритмом bcrypt. Нулевое значение использует bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func (p Bcrypt) HashPassword(password string) (string, error) {
	cost := p.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %s", err.Error())
	}
	return string(bytes), nil
}

func (p Bcrypt) ComparePassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
