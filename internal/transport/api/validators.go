package api

import (
	"fmt"
	"strconv"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// validateMaxBytes в отличии от тэга max который проверяет длину рун, - проверят длину байт в поле.
func validateMaxBytes(fl validator.FieldLevel) bool {
	param := fl.Param() // получаем значение из тега
	maxBytes, err := strconv.Atoi(param)
	if err != nil {
		return false
	}

	// нужно убедится что значение поля - строка.
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return len([]byte(str)) <= maxBytes
}

// stringIn валидатор строкового поля, которое должно принимать одно из значений.
func stringIn[T ~string](values ...T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		str := fl.Field().String()
		for _, v := range values {
			if string(v) == str {
				return true
			}
		}
		return false
	}
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("validator registration: unexpected engine %T", binding.Validator.Engine())
	}

	validators := map[string]validator.Func{
		"max_bytes":      validateMaxBytes,
		"payout_method":  stringIn(domain.PayoutPayPal, domain.PayoutPayoneer, domain.PayoutWalletTransfer),
		"balance_type":   stringIn(domain.BalanceBuyer, domain.BalancePublisher, domain.BalanceAffiliate),
		"order_type":     stringIn(domain.OrderTypeGuestPost, domain.OrderTypeLinkInsertion),
		"content_source": stringIn(domain.ContentBuyerProvided, domain.ContentPublisherWrites),
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("validator registration: %s", err.Error())
		}
	}
	return nil
}
