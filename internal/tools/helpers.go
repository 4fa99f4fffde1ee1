package tools

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// decodeFields конвертирует сырые JSON-значения в закрытый тип domain.Value.
func decodeFields(raw map[string]json.RawMessage) (map[string]domain.Value, error) {
	fields := make(map[string]domain.Value, len(raw))
	for name, data := range raw {
		var v domain.Value
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		fields[name] = v
	}
	return fields, nil
}

// domainOf извлекает домен из e-mail адреса (в нижнем регистре).
func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
