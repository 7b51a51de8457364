// internal/service/template_service.go
package service

import (
    "strings"
)

// RenderTemplate substitutes {placeholder} tokens in a fixed-text
// follow-up message.
func RenderTemplate(template string, data map[string]string) string {
    result := template
    for k, v := range data {
        if v == "" {
            continue
        }
        result = strings.ReplaceAll(result, "{"+k+"}", v)
    }
    return result
}

// ContactData builds the substitution map for a contact name.
func ContactData(name string) map[string]string {
    first := name
    if i := strings.IndexByte(name, ' '); i > 0 {
        first = name[:i]
    }
    return map[string]string{
        "name":       name,
        "first_name": first,
    }
}
