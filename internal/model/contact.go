// internal/model/contact.go
package model

type Contact struct {
    ID       int    `db:"id" json:"id"`
    TenantID int    `db:"tenant_id" json:"tenant_id"`
    Name     string `db:"name" json:"name"`
    Phone    string `db:"phone" json:"phone"`
    ChatID   string `db:"chat_id" json:"chat_id"` // telegram chat id, when known
}
