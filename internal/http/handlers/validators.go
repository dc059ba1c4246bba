package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// maxbytes limits the encoded length of a string. The stock max rule counts
// runes, which lets multibyte passwords slip past bcrypt's 72 byte limit.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)

	if !ok {
		return
	}

	err := v.RegisterValidation("maxbytes", maxBytes)

	if err != nil {
		panic(err)
	}
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())

	if err != nil {
		return false
	}

	return len(fl.Field().String()) <= limit
}
