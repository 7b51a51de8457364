// internal/model/connection.go
package model

// Supported channels
const (
    ChannelWhatsApp = "whatsapp"
    ChannelTelegram = "telegram"
)

// Connection is a tenant's link to a messaging channel. Connection
// management (pairing, webhooks, token refresh) lives outside this
// service; delivery only needs the credentials.
type Connection struct {
    ID            int    `db:"id" json:"id"`
    TenantID      int    `db:"tenant_id" json:"tenant_id"`
    Channel       string `db:"channel" json:"channel"` // whatsapp, telegram
    AccessToken   string `db:"access_token" json:"-"`
    PhoneNumberID string `db:"phone_number_id" json:"phone_number_id,omitempty"`
    BotToken      string `db:"bot_token" json:"-"`
}
