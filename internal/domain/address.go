package domain

import (
	"regexp"
	"strings"
)

// Address — адрес доставки или точки продаж.
type Address struct {
	City    string
	Street  string
	ZipCode string
}

// NewAddress создаёт адрес, обрезая пробелы по краям.
func NewAddress(city, street, zipCode string) Address {
	return Address{
		City:    strings.TrimSpace(city),
		Street:  strings.TrimSpace(street),
		ZipCode: strings.TrimSpace(zipCode),
	}
}

// IsEmpty сообщает, что ни одно поле адреса не заполнено.
func (a Address) IsEmpty() bool {
	return a.City == "" && a.Street == "" && a.ZipCode == ""
}

// String возвращает каноническое представление, которое хранится в legacy-колонках:
//
//	Address { City = Montevideo, Street = Av. Italia 1234, ZipCode = 11300 }
func (a Address) String() string {
	return "Address { City = " + a.City + ", Street = " + a.Street + ", ZipCode = " + a.ZipCode + " }"
}

var addressPattern = regexp.MustCompile(`^Address \{ City = ([^,{}]*), Street = ([^,{}]*), ZipCode = ([^,{}]*) \}$`)

// ParseAddress разбирает строку из Address.String.
// Некорректный ввод даёт пустой адрес, а не ошибку: старые записи могут быть в произвольном формате.
func ParseAddress(raw string) Address {
	matches := addressPattern.FindStringSubmatch(raw)
	if len(matches) != 4 {
		return Address{}
	}
	return Address{City: matches[1], Street: matches[2], ZipCode: matches[3]}
}
