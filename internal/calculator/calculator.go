// Package calculator вычисляет результат вычисления по его типу и списку аргументов.
// Функции пакета чистые: никакого состояния, БД или сессии.
package calculator

import (
	"errors"
	"fmt"
	"math"
)

// Type - тип вычисления.
type Type string

// Поддерживаемые типы вычислений.
const (
	Addition       Type = "addition"
	Subtraction    Type = "subtraction"
	Multiplication Type = "multiplication"
	Division       Type = "division"
	Power          Type = "power"
	Modulus        Type = "modulus"
)

// Variadic означает отсутствие верхней границы числа аргументов.
const Variadic = -1

// Ошибки вычислителя.
var (
	ErrInvalidInputs = errors.New("invalid inputs")
	ErrUnknownType   = errors.New("unknown calculation type")
)

// operation описывает допустимое число аргументов и саму операцию.
type operation struct {
	minArgs int
	maxArgs int
	apply   func(inputs []float64) (float64, error)
}

// Новый тип добавляется только сюда.
var operations = map[Type]operation{
	Addition:       {minArgs: 2, maxArgs: Variadic, apply: add},
	Subtraction:    {minArgs: 2, maxArgs: Variadic, apply: subtract},
	Multiplication: {minArgs: 2, maxArgs: Variadic, apply: multiply},
	Division:       {minArgs: 2, maxArgs: Variadic, apply: divide},
	Power:          {minArgs: 2, maxArgs: 2, apply: power},
	Modulus:        {minArgs: 2, maxArgs: 2, apply: modulus},
}

// Types возвращает список поддерживаемых типов в стабильном порядке.
func Types() []Type {
	return []Type{Addition, Subtraction, Multiplication, Division, Power, Modulus}
}

// IsValid сообщает, поддерживается ли тип.
func (t Type) IsValid() bool {
	_, ok := operations[t]
	return ok
}

// Arity возвращает минимальное и максимальное число аргументов для типа.
// Для типов без верхней границы max равен Variadic.
func Arity(t Type) (int, int, error) {
	op, ok := operations[t]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return op.minArgs, op.maxArgs, nil
}

// CheckArity проверяет число аргументов для типа.
func CheckArity(t Type, n int) error {
	minArgs, maxArgs, err := Arity(t)
	if err != nil {
		return err
	}
	if n < minArgs {
		return fmt.Errorf("%w: %s requires at least %d inputs, got %d", ErrInvalidInputs, t, minArgs, n)
	}
	if maxArgs != Variadic && n > maxArgs {
		if minArgs == maxArgs {
			return fmt.Errorf("%w: %s requires exactly %d inputs, got %d", ErrInvalidInputs, t, maxArgs, n)
		}
		return fmt.Errorf("%w: %s accepts at most %d inputs, got %d", ErrInvalidInputs, t, maxArgs, n)
	}
	return nil
}

// Compute вычисляет результат для типа t и аргументов inputs.
// Нечисловой результат (NaN, ±Inf) считается ошибкой входных данных.
func Compute(t Type, inputs []float64) (float64, error) {
	op, ok := operations[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err := CheckArity(t, len(inputs)); err != nil {
		return 0, err
	}
	for i, v := range inputs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: input %d is not a finite number", ErrInvalidInputs, i)
		}
	}

	result, err := op.apply(inputs)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: %s result is not a finite number", ErrInvalidInputs, t)
	}
	// -0 и 0 в JSON должны выглядеть одинаково.
	if result == 0 {
		result = 0
	}
	return result, nil
}

func add(inputs []float64) (float64, error) {
	var sum float64
	for _, v := range inputs {
		sum += v
	}
	return sum, nil
}

func subtract(inputs []float64) (float64, error) {
	result := inputs[0]
	for _, v := range inputs[1:] {
		result -= v
	}
	return result, nil
}

func multiply(inputs []float64) (float64, error) {
	result := 1.0
	for _, v := range inputs {
		result *= v
	}
	return result, nil
}

func divide(inputs []float64) (float64, error) {
	result := inputs[0]
	for _, v := range inputs[1:] {
		if v == 0 {
			return 0, fmt.Errorf("%w: cannot divide by zero", ErrInvalidInputs)
		}
		result /= v
	}
	return result, nil
}

func power(inputs []float64) (float64, error) {
	return math.Pow(inputs[0], inputs[1]), nil
}

func modulus(inputs []float64) (float64, error) {
	if inputs[1] == 0 {
		return 0, fmt.Errorf("%w: cannot take modulus by zero", ErrInvalidInputs)
	}
	return math.Mod(inputs[0], inputs[1]), nil
}
